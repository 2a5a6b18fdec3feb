package main

import (
	"context"
	"fmt"
	"log/slog"

	"lendit/internal/app/middleware"
	appoutbox "lendit/internal/app/outbox"
	"lendit/internal/app/schedule"
	"lendit/internal/app/uow"
	"lendit/internal/clock"
	"lendit/internal/infra/broker/kafka"
	"lendit/internal/infra/broker/rabbitmq"
	"lendit/internal/infra/config"
	mongodb "lendit/internal/infra/db/mongo"
	"lendit/internal/infra/db/postgres"
	"lendit/internal/infra/db/postgres/migrations"
	"lendit/internal/infra/obs"
	infraoutbox "lendit/internal/infra/outbox"
	"lendit/internal/infra/payments"
	"lendit/internal/infra/storage/memory"
)

type storage struct {
	uow         uow.UoWFactory
	outbox      appoutbox.Outbox
	relay       infraoutbox.Store
	idempotency middleware.IdempotencyStore
	purger      schedule.Purger
	inbox       payments.Inbox
	checks      map[string]obs.Check
	close       func(ctx context.Context) error
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return storage{}, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			_ = client.Close(ctx)
			return storage{}, fmt.Errorf("mongo indexes: %w", err)
		}
		box, err := infraoutbox.NewMongoStore(ctx, client.DB, nil)
		if err != nil {
			_ = client.Close(ctx)
			return storage{}, fmt.Errorf("mongo outbox: %w", err)
		}
		idem, err := mongodb.NewIdempotencyStore(ctx, client.DB)
		if err != nil {
			_ = client.Close(ctx)
			return storage{}, fmt.Errorf("mongo idempotency: %w", err)
		}
		received, err := mongodb.NewInbox(ctx, client.DB, cfg.KafkaGroupID)
		if err != nil {
			_ = client.Close(ctx)
			return storage{}, fmt.Errorf("mongo inbox: %w", err)
		}
		logger.Info("storage ready", "driver", cfg.StorageDriver, "database", cfg.MongoDB)
		return storage{
			uow:         mongodb.NewFactory(client.DB),
			outbox:      box,
			relay:       box,
			idempotency: idem,
			inbox:       received,
			checks:      map[string]obs.Check{"mongo": client.Ping},
			close:       client.Close,
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.DatabaseURL, 0)
		if err != nil {
			return storage{}, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.Apply(ctx, pool); err != nil {
			pool.Close()
			return storage{}, fmt.Errorf("migrate: %w", err)
		}
		box := postgres.NewOutboxStore(pool, nil)
		idem := postgres.NewIdempotencyStore(pool)
		logger.Info("storage ready", "driver", cfg.StorageDriver)
		return storage{
			uow:         postgres.NewFactory(pool),
			outbox:      box,
			relay:       box,
			idempotency: idem,
			purger:      idem,
			inbox:       postgres.NewInbox(pool, cfg.KafkaGroupID),
			checks:      map[string]obs.Check{"postgres": pool.Ping},
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	default:
		box := memory.NewOutbox()
		idem := memory.NewIdempotencyStore(clock.NewSystem())
		logger.Info("storage ready", "driver", config.DriverMemory)
		return storage{
			uow:         memory.NewFactory(),
			outbox:      box,
			relay:       box,
			idempotency: idem,
			purger:      idem,
			inbox:       memory.NewInbox(),
		}, nil
	}
}

type broker struct {
	producer infraoutbox.Producer
	workers  []worker
	closers  []func() error
}

// openBroker connects the outbox producer and, when a payments topic is set,
// the payments consumer. With no broker, events are relayed to the log.
func openBroker(cfg config.Config, listener *payments.Listener, logger *slog.Logger) (broker, error) {
	switch cfg.Broker {
	case config.BrokerKafka:
		kcfg := kafka.NewConfig("lendit")
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, kcfg)
		if err != nil {
			return broker{}, fmt.Errorf("kafka producer: %w", err)
		}
		out := broker{producer: producer, closers: []func() error{producer.Close}}
		if cfg.KafkaPaymentsTopic == "" {
			return out, nil
		}
		consumer, err := kafka.NewPaymentsConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaPaymentsTopic, kcfg, listener, logger)
		if err != nil {
			_ = producer.Close()
			return broker{}, fmt.Errorf("kafka consumer: %w", err)
		}
		out.closers = append(out.closers, consumer.Close)
		out.workers = append(out.workers, worker{name: "payments-consumer", run: consumer.Run})
		return out, nil

	case config.BrokerRabbitMQ:
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return broker{}, fmt.Errorf("rabbitmq publisher: %w", err)
		}
		out := broker{producer: publisher, closers: []func() error{publisher.Close}}
		if cfg.KafkaPaymentsTopic == "" {
			return out, nil
		}
		consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.RabbitMQPaymentsQueue, cfg.KafkaPaymentsTopic, logger)
		if err != nil {
			_ = publisher.Close()
			return broker{}, fmt.Errorf("rabbitmq consumer: %w", err)
		}
		out.closers = append(out.closers, consumer.Close)
		out.workers = append(out.workers, worker{name: "payments-consumer", run: func(ctx context.Context) error {
			return consumer.Run(ctx, listener)
		}})
		return out, nil

	default:
		return broker{producer: infraoutbox.LogProducer{Logger: logger}}, nil
	}
}
