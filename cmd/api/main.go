// Executável principal da API: carrega a configuração, inicializa dependências e sobe o servidor HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marcelojr/votacao-3d/internal/app/httpapi"
	"github.com/marcelojr/votacao-3d/internal/app/live"
	"github.com/marcelojr/votacao-3d/internal/app/voting"
	"github.com/marcelojr/votacao-3d/internal/domain"
	"github.com/marcelojr/votacao-3d/internal/platform/clock"
	"github.com/marcelojr/votacao-3d/internal/platform/config"
	"github.com/marcelojr/votacao-3d/internal/platform/health"
	"github.com/marcelojr/votacao-3d/internal/platform/ids"
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

	checker := health.NewChecker()
	systemClock := clock.NewSystemClock()

	var (
		voteRepo   domain.VoteRepository
		ballotRepo domain.BallotRepository
	)
	if cfg.Persistence {
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

		voteRepo = postgresstorage.NewVoteRepository(db)
		ballotRepo = postgresstorage.NewBallotRepository(db)
		checker.WithDB(sqlDB)
	}

	var counter domain.TallyCounter
	var queue domain.BallotQueue

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
		// A API só publica; o consumer group pertence ao worker.
		kafkaQueue := kafkamessaging.NewQueue(cfg.KafkaBrokers, cfg.KafkaTopic, "")
		defer kafkaQueue.Close()
		queue = kafkaQueue
		checker.WithKafka(cfg.KafkaBrokers)
	}

	hub := live.NewHub(logger.L(), []string{cfg.CORSAllowedOrigin})
	go hub.Run(ctx)

	service := voting.NewService(
		voting.NewStore(systemClock),
		voteRepo,
		ballotRepo,
		counter,
		queue,
		hub,
		systemClock,
		ids.NewGenerator(),
		logger.L(),
	)

	if cfg.Persistence {
		if err := service.Restore(ctx); err != nil {
			logger.Fatal("falha ao restaurar estado", "err", err)
		}
	}

	mux := http.NewServeMux()
	httpapi.New(service, logger.L()).
		WithLive(hub.Handler(service)).
		Register(mux)
	mux.HandleFunc("GET /readyz", checker.ReadyHandler())
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           httpapi.WithLogging(logger.L(), httpapi.CORS(cfg.CORSAllowedOrigin, mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("erro ao encerrar servidor", "err", err)
		}
	}()

	logger.Info("api ouvindo", "addr", cfg.HTTPAddress, "queue", cfg.BallotQueue, "persistence", cfg.Persistence)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("erro no servidor", "err", err)
	}
	logger.Info("api finalizada")
}
