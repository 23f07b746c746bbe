// Pacote config centraliza o carregamento das variáveis de ambiente usadas pelos binários.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	QueueRedis = "redis"
	QueueKafka = "kafka"
	QueueNone  = "none"
)

// Config agrega todos os parâmetros necessários para API e worker.
type Config struct {
	HTTPAddress string
	LogLevel    string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Persistence liga o Postgres: votações e votos passam a sobreviver a reinícios.
	Persistence bool
	AutoMigrate bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	BallotQueue        string
	QueueKey           string
	CounterKeyPrefix   string
	TallyMirrorEnabled bool

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	CORSAllowedOrigin    string
	WorkerMetricsAddress string
}

func Load() (Config, error) {
	// .env é opcional; em Docker/K8s as variáveis chegam pelo ambiente.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: .env invalido: %w", err)
	}

	cfg := Config{
		HTTPAddress:          getEnv("HTTP_ADDRESS", ":3000"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		PostgresHost:         getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:         getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:         getEnv("POSTGRES_USER", "votacao"),
		PostgresPassword:     getEnv("POSTGRES_PASSWORD", "votacao"),
		PostgresDB:           getEnv("POSTGRES_DB", "votacao"),
		PostgresSSLMode:      getEnv("POSTGRES_SSLMODE", "disable"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		BallotQueue:          strings.ToLower(getEnv("BALLOT_QUEUE", QueueNone)),
		QueueKey:             getEnv("REDIS_QUEUE_KEY", "fila:votos"),
		CounterKeyPrefix:     getEnv("REDIS_COUNTER_PREFIX", "contador"),
		KafkaBrokers:         splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:           getEnv("KAFKA_TOPIC", "ballots"),
		KafkaGroupID:         getEnv("KAFKA_GROUP_ID", "ballot-worker"),
		CORSAllowedOrigin:    getEnv("CORS_ALLOWED_ORIGIN", "*"),
		WorkerMetricsAddress: getEnv("WORKER_METRICS_ADDRESS", ":9090"),
	}

	var err error
	if cfg.Persistence, err = getEnvAsBool("STORE_PERSISTENCE", false); err != nil {
		return Config{}, err
	}
	if cfg.AutoMigrate, err = getEnvAsBool("DB_AUTO_MIGRATE", true); err != nil {
		return Config{}, err
	}
	if cfg.TallyMirrorEnabled, err = getEnvAsBool("TALLY_MIRROR_ENABLED", false); err != nil {
		return Config{}, err
	}

	dbStr := getEnv("REDIS_DB", "0")
	dbInt, err := strconv.Atoi(dbStr)
	if err != nil {
		return Config{}, fmt.Errorf("config: REDIS_DB invalido: %w", err)
	}
	cfg.RedisDB = dbInt

	switch cfg.BallotQueue {
	case QueueRedis, QueueKafka, QueueNone:
	default:
		return Config{}, fmt.Errorf("config: BALLOT_QUEUE invalido: %q", cfg.BallotQueue)
	}
	if cfg.BallotQueue == QueueKafka && len(cfg.KafkaBrokers) == 0 {
		return Config{}, fmt.Errorf("config: KAFKA_BROKERS obrigatorio com BALLOT_QUEUE=kafka")
	}

	return cfg, nil
}

// NeedsRedis indica se algum componente configurado depende do Redis.
func (c Config) NeedsRedis() bool {
	return c.BallotQueue == QueueRedis || c.TallyMirrorEnabled
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

// getEnvAsBool aceita os formatos de strconv.ParseBool (1, t, true, 0, f, false...).
func getEnvAsBool(key string, fallback bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("config: %s invalido: %w", key, err)
	}
	return parsed, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
