package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/courtbook/slot-engine/internal/audit"
	"github.com/courtbook/slot-engine/internal/config"
	dbpkg "github.com/courtbook/slot-engine/internal/db"
	"github.com/courtbook/slot-engine/internal/events"
	"github.com/courtbook/slot-engine/internal/infra/lock"
	"github.com/courtbook/slot-engine/internal/infra/mq"
	"github.com/courtbook/slot-engine/internal/infra/proofstore"
	"github.com/courtbook/slot-engine/internal/logger"
	"github.com/courtbook/slot-engine/internal/routes"
	"github.com/courtbook/slot-engine/internal/scheduler"
	"github.com/courtbook/slot-engine/internal/validators"
)

const shutdownTimeout = 30 * time.Second

func main() {

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := dbpkg.NewDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid facility timezone")
	}
	hours, err := cfg.BusinessCalendar()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid business calendar")
	}

	if err := validators.Register(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	// ======================================================
	// 🔧 INFRA
	// ======================================================
	var publisher events.Publisher = events.LogPublisher{}
	if cfg.AMQPURL != "" {
		p, err := mq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to rabbitmq")
		}
		defer p.Close()
		publisher = p
	}

	var proofs proofstore.Checker = proofstore.AcceptAll{}
	if cfg.ProofBucket != "" {
		s, err := proofstore.NewS3Store(ctx, proofstore.Options{
			Bucket:          cfg.ProofBucket,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure proof store")
		}
		proofs = s
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.RedisURL != "" {
		client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client, "courtbook")
	}

	auditDispatcher := audit.NewDispatcher(audit.New(db))
	defer auditDispatcher.Close()

	// ======================================================
	// 🌐 HTTP
	// ======================================================
	r := gin.New()
	r.Use(gin.Recovery())

	sweeper := routes.RegisterRoutes(r, db, cfg, routes.Deps{
		Clock:    clock,
		Hours:    hours,
		Audit:    auditDispatcher,
		Notifier: events.NewNotifier(publisher),
		Proofs:   proofs,
		Locker:   locker,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ======================================================
	// ⏰ SCHEDULER
	// ======================================================
	sched, err := scheduler.New(clock, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	if _, err := sched.AddJob(ctx, "reconcile", cfg.SweeperCron, func(ctx context.Context) error {
		rep, err := sweeper.Run(ctx)
		if err != nil {
			return err
		}
		log.Info().Interface("report", rep).Msg("reconcile finished")
		return nil
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule reconcile")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sched.Start()
		<-ctx.Done()
		return sched.Stop()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}
}
