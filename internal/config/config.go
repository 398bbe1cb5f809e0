package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// ClientConfig centraliza la configuracion del cliente de chat.
type ClientConfig struct {
	APIURL      string        `env:"COACH_API_URL" envDefault:"http://localhost:8080"`
	Token       string        `env:"COACH_TOKEN"`
	UserID      int64         `env:"COACH_USER_ID"`
	UserName    string        `env:"COACH_USER_NAME" envDefault:"runner"`
	HTTPTimeout time.Duration `env:"COACH_HTTP_TIMEOUT" envDefault:"15s"`
	// PollInterval replica el staleTime del historial en la app web.
	PollInterval         time.Duration `env:"COACH_POLL_INTERVAL" envDefault:"30s"`
	TypingPerRune        time.Duration `env:"COACH_TYPING_PER_RUNE" envDefault:"15ms"`
	TypingMin            time.Duration `env:"COACH_TYPING_MIN" envDefault:"1s"`
	TypingMax            time.Duration `env:"COACH_TYPING_MAX" envDefault:"3s"`
	WorkoutsRecheckDelay time.Duration `env:"COACH_WORKOUTS_RECHECK_DELAY" envDefault:"500ms"`
	AuthRedirectDelay    time.Duration `env:"COACH_AUTH_REDIRECT_DELAY" envDefault:"2s"`
	RedisAddr            string        `env:"REDIS_ADDR"`
	RedisPassword        string        `env:"REDIS_PASSWORD"`
	RedisDB              int           `env:"REDIS_DB" envDefault:"0"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile              string        `env:"COACH_LOG_FILE"`
}

// ServerConfig es la configuracion del servicio de sesiones de referencia.
type ServerConfig struct {
	HTTPPort            string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL         string `env:"DATABASE_URL"`
	JWTSecret           string `env:"JWT_SECRET,notEmpty"`
	JWTAccessTTLMinutes int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"60"`
	LLMAPIKey           string `env:"LLM_API_KEY"`
	LLMBaseURL          string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel            string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LogLevel            string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadClientConfig carga la configuracion del cliente desde variables de entorno.
func LoadClientConfig() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadServerConfig carga la configuracion del servidor desde variables de entorno.
func LoadServerConfig() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
