package config

import (
	"os"
	"strconv"
)

type Config struct {
	Addr       string
	Env        string
	APIToken   string
	CORSOrigin string
	// Storage. DatabaseURL takes precedence over RedisURL when set.
	RedisURL      string
	DatabaseURL   string
	MigrationsDir string
	// GitHub Configuration
	GitHubToken   string
	GitHubAPIBase string
	// OpenAI Configuration
	OpenAIAPIKey string
	OpenAIModel  string
	// X Configuration
	XAccessToken string
	XUsername    string
	// Scheduled posting
	ScheduleEnabled bool
}

func Load() Config {
	env := getenv("ENV", "local")
	return Config{
		Addr:          getenv("API_ADDR", ":8000"),
		Env:           env,
		APIToken:      getenv("API_TOKEN", ""),
		CORSOrigin:    getenv("CORS_ORIGIN", "*"),
		RedisURL:      getenv("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:   getenv("DATABASE_URL", ""),
		MigrationsDir: getenv("MIGRATIONS_DIR", "./db/migrations"),
		GitHubToken:   getenv("GITHUB_TOKEN", ""),
		GitHubAPIBase: getenv("GITHUB_API_BASE", "https://api.github.com"),
		OpenAIAPIKey:  getenv("OPENAI_API_KEY", ""),
		OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4o-mini"),
		// X credential - empty by default, posting falls back to the local stub
		XAccessToken:    getenv("X_ACCESS_TOKEN", ""),
		XUsername:       getenv("X_USERNAME", "TeamMirai"),
		ScheduleEnabled: getenvBool("SCHEDULE_ENABLED", env == "prod"),
	}
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
