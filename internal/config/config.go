package config

import "os"

type Config struct {
	Port          string
	Env           string
	MongoURI      string
	MongoDB       string
	DefaultLocale string
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "3000"),
		Env:           getEnv("ENV", "development"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGODB_DATABASE", "pointage"),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "fr"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
