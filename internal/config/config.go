package config

import (
	"time"
)

// Mode selects which program main runs.
type Mode string

const (
	ModeApp     Mode = "app"
	ModeBackend Mode = "backend"
)

// Path is the location of the YAML config file. An empty path means defaults only.
type Path string

type Config struct {
	App     App     `yaml:"app"`
	API     API     `yaml:"api"`
	Store   Store   `yaml:"store"`
	Auth    Auth    `yaml:"auth"`
	UI      UI      `yaml:"ui"`
	Backend Backend `yaml:"backend"`
	Logger  Logger  `yaml:"logger"`
}

type App struct {
	Env string `yaml:"env" validate:"oneof=development production test"`
}

type API struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

type Store struct {
	Driver string `yaml:"driver" validate:"oneof=memory file redis"`
	Path   string `yaml:"path" validate:"required_if=Driver file"`
	Redis  Redis  `yaml:"redis"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix"`
}

type Auth struct {
	Strategy string `yaml:"strategy" validate:"oneof=sequential parallel direct"`
}

type UI struct {
	Port          int           `yaml:"port" validate:"gt=0,lt=65536"`
	FlashLifetime time.Duration `yaml:"flash_lifetime" validate:"gt=0"`
}

type Backend struct {
	Port      int    `yaml:"port" validate:"gt=0,lt=65536"`
	UsersPath string `yaml:"users_path"`
	// TokenSecret signs issued tokens. Empty means a random secret per run.
	TokenSecret string        `yaml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl" validate:"gt=0"`
	// LoginRateLimit is requests per minute per IP on the credential
	// endpoints; 0 disables the limit.
	LoginRateLimit int      `yaml:"login_rate_limit" validate:"gte=0"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Logger struct {
	Level       string   `yaml:"level" validate:"oneof=debug info warn error"`
	Encoding    string   `yaml:"encoding" validate:"oneof=json console"`
	OutputPaths []string `yaml:"output_paths" validate:"min=1"`
}

// Default returns the configuration used when no file or env override is present.
func Default() *Config {
	return &Config{
		App: App{
			Env: "development",
		},
		API: API{
			BaseURL: "http://127.0.0.1:8000/api",
			Timeout: 30 * time.Second,
		},
		Store: Store{
			Driver: "file",
			Path:   "./session.json",
			Redis: Redis{
				Addr:   "localhost:6379",
				Prefix: "citas:",
			},
		},
		Auth: Auth{
			Strategy: "sequential",
		},
		UI: UI{
			Port:          8123,
			FlashLifetime: 3 * time.Minute,
		},
		Backend: Backend{
			Port:           8000,
			UsersPath:      "./users.json",
			TokenTTL:       24 * time.Hour,
			LoginRateLimit: 30,
			AllowedOrigins: []string{"*"},
		},
		Logger: Logger{
			Level:       "info",
			Encoding:    "console",
			OutputPaths: []string{"stdout"},
		},
	}
}

// New loads defaults, then the YAML file at path (if any), then the environment.
func New(path Path) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := readYAML(string(path), cfg); err != nil {
			return nil, err
		}
	}

	loadEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
