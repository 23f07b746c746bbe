// Worker assíncrono que consome votos da fila, persiste no Postgres e mantém o espelho de contadores.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marcelojr/votacao-3d/internal/app/worker"
	"github.com/marcelojr/votacao-3d/internal/domain"
	"github.com/marcelojr/votacao-3d/internal/platform/clock"
	"github.com/marcelojr/votacao-3d/internal/platform/config"
	"github.com/marcelojr/votacao-3d/internal/platform/health"
	"github.com/marcelojr/votacao-3d/internal/platform/logger"
	kafkamessaging "github.com/marcelojr/votacao-3d/internal/platform/messaging/kafka"
	"github.com/marcelojr/votacao-3d/internal/platform/migrations"
	postgresstorage "github.com/marcelojr/votacao-3d/internal/platform/storage/postgres"
	redisstorage "github.com/marcelojr/votacao-3d/internal/platform/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuracao invalida", "err", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	if cfg.BallotQueue == config.QueueNone {
		logger.Fatal("worker exige BALLOT_QUEUE redis ou kafka")
	}

	// Worker usa a mesma conexão GORM da API para compartilhar migrations e modelos.
	db, err := postgresstorage.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("falha ao conectar no postgres", "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("falha ao resgatar sql.DB", "err", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		if err := migrations.Run(db); err != nil {
			logger.Fatal("falha na migracao automatica", "err", err)
		}
	}

	checker := health.NewChecker().WithDB(sqlDB)

	var (
		counter domain.TallyCounter
		queue   domain.BallotQueue
	)
	if cfg.NeedsRedis() {
		redisClient, err := redisstorage.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("falha ao conectar no redis", "err", err)
		}
		defer redisClient.Close()
		checker.WithRedis(redisClient)

		if cfg.TallyMirrorEnabled {
			counter = redisstorage.NewTally(redisClient, cfg.CounterKeyPrefix)
		}
		if cfg.BallotQueue == config.QueueRedis {
			queue = redisstorage.NewQueue(redisClient, cfg.QueueKey)
		}
	}
	if cfg.BallotQueue == config.QueueKafka {
		kafkaQueue := kafkamessaging.NewQueue(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
		defer kafkaQueue.Close()
		queue = kafkaQueue
		checker.WithKafka(cfg.KafkaBrokers)
	}

	if cfg.WorkerMetricsAddress != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/readyz", checker.ReadyHandler())
			logger.Info("worker metrics ouvindo", "addr", cfg.WorkerMetricsAddress)
			if err := http.ListenAndServe(cfg.WorkerMetricsAddress, mux); err != nil {
				logger.Error("erro no servidor de metrics do worker", "err", err)
			}
		}()
	}

	processor := worker.NewBallotProcessor(postgresstorage.NewBallotRepository(db), counter, clock.NewSystemClock())

	logger.Info("worker iniciado, aguardando votos", "queue", cfg.BallotQueue)
	err = queue.Consume(ctx, func(ctx context.Context, b domain.Ballot) error {
		// Falha num voto não derruba o consumo; o Store da API segue como fonte da verdade.
		if err := processor.Process(ctx, b); err != nil {
			logger.Error("erro ao processar voto", "ballot", b.ID, "vote", b.VoteID, "err", err)
		}
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Fatal("worker finalizado com erro", "err", err)
	}

	logger.Info("worker finalizado")
}
