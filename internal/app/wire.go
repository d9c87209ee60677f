// Package app connects infrastructure and builds the ledger service for the
// binaries under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segyhp/microloan-ledger/internal/cache"
	"github.com/segyhp/microloan-ledger/internal/config"
	"github.com/segyhp/microloan-ledger/internal/event"
	"github.com/segyhp/microloan-ledger/internal/repository"
	"github.com/segyhp/microloan-ledger/internal/service"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

const amqpDialAttempts = 5

// Dependencies holds every long-lived connection plus the service built on them.
type Dependencies struct {
	DB     *sqlx.DB
	Redis  *redis.Client
	AMQP   *amqp.Connection
	Ledger *service.LedgerService
}

// Close releases connections in reverse order of creation.
func (d *Dependencies) Close() error {
	var errs []error
	if d.AMQP != nil {
		errs = append(errs, d.AMQP.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	if d.DB != nil {
		errs = append(errs, d.DB.Close())
	}
	return errors.Join(errs...)
}

// Build connects to Postgres, Redis and optionally RabbitMQ. Redis being down
// is not fatal; the balance cache simply misses. A missing AMQP_URL falls back
// to logging activities.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	db, err := InitDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.DB = db
	logger.Info("Connected to Postgres")

	deps.Redis = InitRedis(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, cfg.GetHealthTimeout())
	if err := deps.Redis.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, balance cache will miss until it recovers", slog.Any("error", err))
	}
	cancel()

	var publisher event.ActivityPublisher = event.NewLogPublisher(logger)
	if cfg.Events.AMQPURL != "" {
		conn, err := connectRabbitMQ(cfg.Events.AMQPURL, logger)
		if err != nil {
			_ = deps.Close()
			return nil, err
		}
		deps.AMQP = conn

		rabbit, err := event.NewRabbitMQPublisher(conn, cfg.Events.Exchange, logger)
		if err != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("failed to set up activity publisher: %w", err)
		}
		publisher = rabbit
	} else {
		logger.Info("AMQP_URL not set, activities will only be logged")
	}

	deps.Ledger = service.NewLedgerService(
		repository.NewLoanRepository(db),
		repository.NewBorrowerRepository(db),
		repository.NewActivityRepository(db),
		cache.NewRedisBalanceCache(deps.Redis, cfg.GetCacheTTL()),
		publisher,
		cfg,
		logger,
	)
	return deps, nil
}

func InitDB(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if lifetime, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		db.SetConnMaxLifetime(lifetime)
	}

	return db, nil
}

func InitRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func connectRabbitMQ(uri string, logger *slog.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := 1; i <= amqpDialAttempts; i++ {
		conn, err = amqp.Dial(uri)
		if err == nil {
			logger.Info("Connected to RabbitMQ")

			go func() {
				closeChan := conn.NotifyClose(make(chan *amqp.Error, 1))
				if e := <-closeChan; e != nil {
					logger.Error("RabbitMQ connection closed", slog.Any("error", e))
				}
			}()
			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying",
			slog.Int("attempt", i),
			slog.Int("max_attempts", amqpDialAttempts),
			slog.Any("error", err),
		)
		time.Sleep(time.Duration(i*2) * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", amqpDialAttempts, err)
}
