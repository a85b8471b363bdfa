package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"pointage-service/internal/i18n"
	"pointage-service/internal/service"
)

type TrackingHandler struct {
	svc *service.TrackingService
}

func NewTrackingHandler(svc *service.TrackingService) *TrackingHandler {
	return &TrackingHandler{svc: svc}
}

func (h *TrackingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tracking/checkin", h.HandleCheckIn)
	mux.HandleFunc("POST /api/tracking/checkout", h.HandleCheckOut)
	mux.HandleFunc("POST /api/tracking/break/start", h.HandleStartBreak)
	mux.HandleFunc("POST /api/tracking/break/end", h.HandleEndBreak)
	mux.HandleFunc("POST /api/tracking/continue", h.HandleContinue)
	mux.HandleFunc("POST /api/tracking/overtime/request", h.HandleRequestOvertime)
	mux.HandleFunc("POST /api/tracking/overtime/approve", h.HandleApproveOvertime)
	mux.HandleFunc("POST /api/tracking/overtime/start", h.HandleStartOvertime)
	mux.HandleFunc("GET /api/tracking/status", h.HandleStatus)
	mux.HandleFunc("GET /api/tracking/monthly", h.HandleMonthly)
	mux.HandleFunc("GET /api/tracking/history", h.HandleHistory)
}

// MutationRequest is the body of every entry-mutating endpoint. At is
// optional RFC3339; when absent the server clock is used.
type MutationRequest struct {
	UserID string `json:"user_id"`
	At     string `json:"at,omitempty"`
}

func (h *TrackingHandler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx, userID, at, ok := h.mutation(w, r)
	if !ok {
		return
	}
	entry, err := h.svc.CheckIn(ctx, userID, at)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	writeJSON(w, map[string]any{
		"message": i18n.T(ctx, "checkin.success", map[string]any{"Time": entry.CheckIn.Format(time.RFC3339)}),
		"entry":   entry,
	})
}

func (h *TrackingHandler) HandleCheckOut(w http.ResponseWriter, r *http.Request) {
	ctx, userID, at, ok := h.mutation(w, r)
	if !ok {
		return
	}
	res, err := h.svc.CheckOut(ctx, userID, at)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	writeJSON(w, map[string]any{
		"message": i18n.T(ctx, "checkout.success", map[string]any{
			"Time":     res.CheckOut.Format(time.RFC3339),
			"NetHours": strconv.FormatFloat(res.NetHours, 'f', 2, 64),
		}),
		"result": res,
	})
}

func (h *TrackingHandler) HandleStartBreak(w http.ResponseWriter, r *http.Request) {
	ctx, userID, at, ok := h.mutation(w, r)
	if !ok {
		return
	}
	entry, err := h.svc.StartBreak(ctx, userID, at)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	writeJSON(w, map[string]any{
		"message": i18n.T(ctx, "break.started", map[string]any{"Time": entry.Breaks[len(entry.Breaks)-1].Start.Format(time.RFC3339)}),
		"entry":   entry,
	})
}

func (h *TrackingHandler) HandleEndBreak(w http.ResponseWriter, r *http.Request) {
	ctx, userID, at, ok := h.mutation(w, r)
	if !ok {
		return
	}
	entry, err := h.svc.EndBreak(ctx, userID, at)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	writeJSON(w, map[string]any{
		"message": i18n.T(ctx, "break.ended", map[string]any{"Time": entry.LastResumeTime.Format(time.RFC3339)}),
		"entry":   entry,
	})
}

func (h *TrackingHandler) HandleContinue(w http.ResponseWriter, r *http.Request) {
	ctx, userID, at, ok := h.mutation(w, r)
	if !ok {
		return
	}
	entry, err := h.svc.ContinueWork(ctx, userID, at)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	writeJSON(w, map[string]any{
		"message": i18n.T(ctx, "continue.success"),
		"entry":   entry,
	})
}

func (h *TrackingHandler) HandleRequestOvertime(w http.ResponseWriter, r *http.Request) {
	ctx, userID, at, ok := h.mutation(w, r)
	if !ok {
		return
	}
	entry, err := h.svc.RequestOvertime(ctx, userID, at)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	writeJSON(w, map[string]any{"message": i18n.T(ctx, "overtime.requested"), "entry": entry})
}

func (h *TrackingHandler) HandleApproveOvertime(w http.ResponseWriter, r *http.Request) {
	ctx, userID, at, ok := h.mutation(w, r)
	if !ok {
		return
	}
	entry, err := h.svc.ApproveOvertime(ctx, userID, at)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	writeJSON(w, map[string]any{"message": i18n.T(ctx, "overtime.approved"), "entry": entry})
}

func (h *TrackingHandler) HandleStartOvertime(w http.ResponseWriter, r *http.Request) {
	ctx, userID, at, ok := h.mutation(w, r)
	if !ok {
		return
	}
	entry, err := h.svc.StartOvertime(ctx, userID, at)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	writeJSON(w, map[string]any{"message": i18n.T(ctx, "overtime.started"), "entry": entry})
}

func (h *TrackingHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := localeContext(r)
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	snap, err := h.svc.RealTimeStatus(ctx, userID)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	writeJSON(w, snap)
}

func (h *TrackingHandler) HandleMonthly(w http.ResponseWriter, r *http.Request) {
	ctx := localeContext(r)
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	var month time.Month
	var year int
	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			http.Error(w, "invalid month", http.StatusBadRequest)
			return
		}
		month = time.Month(m)
	}
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}
		year = y
	}
	mt, err := h.svc.GetMonthlyTracking(ctx, userID, month, year)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	writeJSON(w, mt)
}

func (h *TrackingHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := localeContext(r)
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	from, err := time.ParseInLocation("2006-01", q.Get("from"), time.UTC)
	if err != nil {
		http.Error(w, "invalid from month, want YYYY-MM", http.StatusBadRequest)
		return
	}
	to, err := time.ParseInLocation("2006-01", q.Get("to"), time.UTC)
	if err != nil {
		http.Error(w, "invalid to month, want YYYY-MM", http.StatusBadRequest)
		return
	}
	months, err := h.svc.GetHistory(ctx, userID, from, to)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	writeJSON(w, map[string]any{"months": months})
}

// mutation decodes the shared mutating-request body and resolves the locale.
func (h *TrackingHandler) mutation(w http.ResponseWriter, r *http.Request) (ctx context.Context, userID string, at time.Time, ok bool) {
	ctx = localeContext(r)
	var req MutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return ctx, "", time.Time{}, false
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return ctx, "", time.Time{}, false
	}
	if req.At != "" {
		t, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			http.Error(w, "invalid at timestamp, want RFC3339", http.StatusBadRequest)
			return ctx, "", time.Time{}, false
		}
		at = t
	}
	return ctx, req.UserID, at, true
}

func localeContext(r *http.Request) context.Context {
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = r.Header.Get("Accept-Language")
	}
	return i18n.WithLocale(r.Context(), locale)
}

func writeError(w http.ResponseWriter, ctx context.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeJSONStatus(w, http.StatusNotFound, map[string]any{
			"message": i18n.T(ctx, "error.not_found"),
			"error":   err.Error(),
		})
	case errors.Is(err, service.ErrInvalidState):
		writeJSONStatus(w, http.StatusConflict, map[string]any{
			"message": i18n.T(ctx, "error.invalid_state"),
			"error":   err.Error(),
		})
	default:
		log.Printf("tracking: %v", err)
		writeJSONStatus(w, http.StatusInternalServerError, map[string]any{
			"message": i18n.T(ctx, "error.internal"),
		})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}
