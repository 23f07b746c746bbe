package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_QuandoAmbienteVazio_DeveUsarDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"HTTP_ADDRESS", "BALLOT_QUEUE", "REDIS_DB", "STORE_PERSISTENCE", "KAFKA_BROKERS", "TALLY_MIRROR_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.HTTPAddress)
	assert.Equal(t, QueueNone, cfg.BallotQueue)
	assert.False(t, cfg.Persistence)
	assert.False(t, cfg.NeedsRedis())
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoad_QuandoFilaKafka_DeveSepararBrokers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BALLOT_QUEUE", "KAFKA")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, QueueKafka, cfg.BallotQueue)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_QuandoFilaDesconhecida_DeveFalhar(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BALLOT_QUEUE", "rabbitmq")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoad_QuandoRedisDBInvalido_DeveFalhar(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BALLOT_QUEUE", "")
	t.Setenv("REDIS_DB", "abc")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoad_QuandoRedisComoFila_DeveExigirRedis(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BALLOT_QUEUE", "redis")
	t.Setenv("REDIS_DB", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.NeedsRedis())
}

func TestPostgresDSN(t *testing.T) {
	cfg := Config{
		PostgresUser:     "u",
		PostgresPassword: "p",
		PostgresHost:     "db",
		PostgresPort:     "5432",
		PostgresDB:       "votos",
		PostgresSSLMode:  "disable",
	}

	assert.Equal(t, "postgres://u:p@db:5432/votos?sslmode=disable", cfg.PostgresDSN())
}

func TestLoad_BooleanosSeguemParseBool(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"t", true},
		{"false", false},
		{"False", false},
		{"0", false},
		{"f", false},
	}

	for _, tc := range cases {
		t.Run(tc.value, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("BALLOT_QUEUE", "")
			t.Setenv("REDIS_DB", "")
			t.Setenv("STORE_PERSISTENCE", tc.value)

			cfg, err := Load()

			require.NoError(t, err)
			assert.Equal(t, tc.want, cfg.Persistence)
		})
	}
}

func TestLoad_QuandoBooleanoInvalido_DeveFalhar(t *testing.T) {
	for _, key := range []string{"STORE_PERSISTENCE", "DB_AUTO_MIGRATE", "TALLY_MIRROR_ENABLED"} {
		for _, value := range []string{"off", "n", "sim"} {
			t.Run(key+"="+value, func(t *testing.T) {
				t.Chdir(t.TempDir())
				t.Setenv("BALLOT_QUEUE", "")
				t.Setenv("REDIS_DB", "")
				t.Setenv(key, value)

				_, err := Load()

				require.Error(t, err)
				assert.Contains(t, err.Error(), key)
			})
		}
	}
}
