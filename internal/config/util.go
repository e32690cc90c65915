package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func readYAML(path string, cfg *Config) error {
	filename, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	yamlFile, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(yamlFile, cfg)
}

func loadEnv(cfg *Config) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	cfg.App.Env = getEnvString("CITAS_APP_ENV", cfg.App.Env)
	cfg.API.BaseURL = getEnvString("CITAS_API_BASE_URL", cfg.API.BaseURL)
	cfg.API.Timeout = getEnvDuration("CITAS_API_TIMEOUT", cfg.API.Timeout)
	cfg.Store.Driver = getEnvString("CITAS_STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.Path = getEnvString("CITAS_STORE_PATH", cfg.Store.Path)
	cfg.Store.Redis.Addr = getEnvString("CITAS_REDIS_ADDR", cfg.Store.Redis.Addr)
	cfg.Store.Redis.Password = getEnvString("CITAS_REDIS_PASSWORD", cfg.Store.Redis.Password)
	cfg.Auth.Strategy = getEnvString("CITAS_AUTH_STRATEGY", cfg.Auth.Strategy)
	cfg.UI.Port = getEnvInt("CITAS_UI_PORT", cfg.UI.Port)
	cfg.Backend.Port = getEnvInt("CITAS_BACKEND_PORT", cfg.Backend.Port)
	cfg.Backend.TokenSecret = getEnvString("CITAS_BACKEND_TOKEN_SECRET", cfg.Backend.TokenSecret)
	cfg.Logger.Level = getEnvString("CITAS_LOG_LEVEL", cfg.Logger.Level)
}

func validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Store.Driver == "redis" && cfg.Store.Redis.Addr == "" {
		return fmt.Errorf("invalid config: store.redis.addr is required for the redis driver")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("error parsing %s: %v, using default", key, err)
		return defaultValue
	}
	return i
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("error parsing %s: %v, using default", key, err)
		return defaultValue
	}
	return d
}
