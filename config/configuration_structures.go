package config

import "time"

type APIConfig struct {
	BaseURL        string        `yaml:"base_url" env:"FINANCE_API_BASE_URL" env-default:"http://localhost:8080/api"`
	Timeout        time.Duration `yaml:"timeout" env:"FINANCE_API_TIMEOUT" env-default:"15s"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout" env:"FINANCE_API_REFRESH_TIMEOUT" env-default:"10s"`
	UserAgent      string        `yaml:"user_agent" env:"FINANCE_API_USER_AGENT" env-default:"finance-cli"`
}

// TokenStoreConfig : где хранится сессия пользователя
// Backend: memory | file | redis | postgres
type TokenStoreConfig struct {
	Backend    string `yaml:"backend" env:"FINANCE_TOKEN_STORE" env-default:"file"`
	SessionKey string `yaml:"session_key" env:"FINANCE_SESSION_KEY" env-default:"authenticatedUser"`
	FilePath   string `yaml:"file_path" env:"FINANCE_TOKEN_FILE" env-default:".finance-session"`
	SecretKey  string `yaml:"secret_key" env:"FINANCE_TOKEN_SECRET"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"FINANCE_REDIS_ADDR" env-default:"localhost:6379"`
	Password string        `yaml:"password" env:"FINANCE_REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"FINANCE_REDIS_DB"`
	Prefix   string        `yaml:"prefix" env-default:"finance:session:"`
	TTL      time.Duration `yaml:"ttl"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"FINANCE_DATABASE_DSN"`
}

type S3Config struct {
	Bucket   string        `yaml:"bucket" env:"FINANCE_S3_BUCKET" env-default:"finance-reports"`
	Region   string        `yaml:"region" env:"FINANCE_S3_REGION" env-default:"us-east-1"`
	Endpoint string        `yaml:"endpoint" env:"FINANCE_S3_ENDPOINT"`
	Local    bool          `yaml:"local" env:"FINANCE_S3_LOCAL"`
	LinkTTL  time.Duration `yaml:"link_ttl" env-default:"24h"`
}

// JWTConfig : параметры выдачи токенов dev-сервером
type JWTConfig struct {
	SecretKey       string `yaml:"secret_key" env:"FINANCE_DEV_JWT_SECRET" env-default:"dev-secret-key"`
	AccessTokenTTL  string `yaml:"access_token_ttl" env-default:"15m"`
	RefreshTokenTTL string `yaml:"refresh_token_ttl" env-default:"720h"`
}

type LoggingConfig struct {
	Env   string `yaml:"env" env:"FINANCE_ENV" env-default:"local"`
	Level string `yaml:"level" env:"FINANCE_LOG_LEVEL"`
}

// MetricsConfig : куда CLI выгружает счётчики шлюза при выходе, пусто - не выгружать
type MetricsConfig struct {
	Textfile string `yaml:"textfile" env:"FINANCE_METRICS_TEXTFILE"`
}

type DevServerConfig struct {
	Addr string    `yaml:"addr" env:"FINANCE_DEV_ADDR" env-default:":8080"`
	JWT  JWTConfig `yaml:"jwt"`
}
