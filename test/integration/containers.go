package integration

import (
	"context"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

type Env struct {
	PG       *postgres.PostgresContainer
	Kafka    *kafka.KafkaContainer
	Redis    *redis.RedisContainer
	PGURL    string
	KAddr    []string
	RedisURL string
	Cancel   context.CancelFunc
}

// SetupPostgres starts only the database container, for store round-trip
// tests that do not need a broker.
func SetupPostgres(ctx context.Context) (*Env, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("orderintake"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		cancel()
		return nil, err
	}

	return &Env{PG: pgC, PGURL: pgURL, Cancel: cancel}, nil
}

// Setup starts the full environment: postgres, kafka, and redis.
func Setup(ctx context.Context) (*Env, error) {
	env, err := SetupPostgres(ctx)
	if err != nil {
		return nil, err
	}

	kafkaC, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("test-cluster"),
	)
	if err != nil {
		env.Teardown(ctx)
		return nil, err
	}
	env.Kafka = kafkaC

	brokers, err := kafkaC.Brokers(ctx)
	if err != nil {
		env.Teardown(ctx)
		return nil, err
	}
	env.KAddr = brokers

	redisC, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		env.Teardown(ctx)
		return nil, err
	}
	env.Redis = redisC

	redisURL, err := redisC.ConnectionString(ctx)
	if err != nil {
		env.Teardown(ctx)
		return nil, err
	}
	env.RedisURL = redisURL

	return env, nil
}

func (e *Env) Teardown(ctx context.Context) {
	e.Cancel()
	if e.Redis != nil {
		_ = e.Redis.Terminate(ctx)
	}
	if e.Kafka != nil {
		_ = e.Kafka.Terminate(ctx)
	}
	if e.PG != nil {
		_ = e.PG.Terminate(ctx)
	}
}
