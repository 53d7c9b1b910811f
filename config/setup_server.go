package config

import (
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
	"net/http"
	"os"
	"time"
)

type AppConfig struct {
	API            APIConfig        `yaml:"api"`
	TokenStore     TokenStoreConfig `yaml:"tokenStore"`
	RedisConfig    RedisConfig      `yaml:"redisConfig"`
	DatabaseConfig DatabaseConfig   `yaml:"databaseConfig"`
	S3Config       S3Config         `yaml:"s3Config"`
	Logging        LoggingConfig    `yaml:"logging"`
	Metrics        MetricsConfig    `yaml:"metrics"`
	DevServer      DevServerConfig  `yaml:"devServer"`
}

// LoadConfig : читает yaml файл и накладывает поверх переменные окружения FINANCE_*
// Отсутствующий файл не ошибка: конфигурация собирается из окружения и значений по умолчанию
func LoadConfig(path string) (*AppConfig, error) {
	var cfg AppConfig

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("ошибка чтения конфигурации %s: %w", path, err)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения переменных окружения: %w", err)
	}

	return &cfg, nil
}

func SetupServer(serverAddress string) (*http.Server, *chi.Mux) {
	router := chi.NewRouter()
	server := &http.Server{
		Addr:              serverAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server, router
}

// SetupHTTPClient : базовый клиент без авторизации, поверх него строится шлюз
func SetupHTTPClient(cfg *APIConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

func SetupDatabase(dsn string) (*Database, error) {
	return NewDatabaseConnection("postgres", dsn)
}

func SetupRedis(cfg *RedisConfig) (*RedisClient, error) {
	return NewRedisClient(cfg)
}
