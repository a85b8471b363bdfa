package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pointage-service/internal/clock"
	"pointage-service/internal/config"
	"pointage-service/internal/handler"
	"pointage-service/internal/i18n"
	"pointage-service/internal/service"
	"pointage-service/internal/store"
)

func main() {
	cfg := config.Load()
	i18n.Init(cfg.DefaultLocale)

	// Connect to MongoDB
	db, err := store.NewMongoDB(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close(context.Background())

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 10*time.Second)
	trackingStore, err := store.NewTrackingStore(indexCtx, db)
	cancelIndex()
	if err != nil {
		log.Fatalf("Failed to init tracking store: %v", err)
	}

	trackingSvc := service.NewTrackingService(trackingStore, clock.System())

	// Routes
	mux := http.NewServeMux()
	handler.NewTrackingHandler(trackingSvc).RegisterRoutes(mux)

	// Health checks
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.LoggingMiddleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Tracking service started on :%s (env: %s)", cfg.Port, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
