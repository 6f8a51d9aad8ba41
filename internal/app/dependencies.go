package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fefejiro/peacepad/pkg/database"
	"github.com/fefejiro/peacepad/pkg/kafka"
	"github.com/fefejiro/peacepad/pkg/redis"
)

// postgresDependency connects to Postgres and applies pending migrations.
type postgresDependency struct {
	app *App
}

func (d *postgresDependency) GetName() string {
	return "postgres"
}

func (d *postgresDependency) DependsOn() []string {
	return nil
}

func (d *postgresDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg

	port, err := strconv.Atoi(cfg.DatabasePort)
	if err != nil {
		return fmt.Errorf("invalid DB_PORT %q: %w", cfg.DatabasePort, err)
	}

	db, sqlxDB, err := database.Connect(database.Config{
		Host:            cfg.DatabaseHost,
		Port:            port,
		Name:            cfg.DatabaseName,
		Username:        cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, d.app.logger)
	if err != nil {
		return err
	}

	driver, err := database.NewMigrateDriver(sqlxDB)
	if err != nil {
		return err
	}

	migrations := database.NewMigrationService(d.app.logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		return err
	}

	d.app.db = db
	d.app.sqlxDB = sqlxDB
	return nil
}

func (d *postgresDependency) Stop(ctx context.Context) error {
	if d.app.sqlxDB == nil {
		return nil
	}
	return d.app.sqlxDB.Close()
}

type redisDependency struct {
	app *App
}

func (d *redisDependency) GetName() string {
	return "redis"
}

func (d *redisDependency) DependsOn() []string {
	return nil
}

func (d *redisDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg

	client, err := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, d.app.logger)
	if err != nil {
		return err
	}

	d.app.redis = client
	return nil
}

func (d *redisDependency) Stop(ctx context.Context) error {
	if d.app.redis == nil {
		return nil
	}
	return d.app.redis.Close()
}

type kafkaProducerDependency struct {
	app *App
}

func (d *kafkaProducerDependency) GetName() string {
	return "kafka-producer"
}

func (d *kafkaProducerDependency) DependsOn() []string {
	return nil
}

func (d *kafkaProducerDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg

	producerCfg := kafka.DefaultProducerConfig()
	producerCfg.Brokers = cfg.KafkaBrokers
	producerCfg.Topic = cfg.KafkaEventsTopic
	producerCfg.BatchSize = cfg.KafkaBatchSize
	producerCfg.BatchTimeout = time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond
	producerCfg.RequiredAcks = cfg.KafkaRequiredAcks
	producerCfg.Compression = cfg.KafkaCompression

	producer, err := kafka.NewProducer(producerCfg, d.app.logger)
	if err != nil {
		return err
	}

	d.app.producer = producer
	return nil
}

func (d *kafkaProducerDependency) Stop(ctx context.Context) error {
	if d.app.producer == nil {
		return nil
	}
	return d.app.producer.Close()
}

// containerDependency builds the repositories and services on top of the
// started infrastructure and registers them for handler injection.
type containerDependency struct {
	app *App
}

func (d *containerDependency) GetName() string {
	return "container"
}

func (d *containerDependency) DependsOn() []string {
	return []string{"postgres", "redis", "kafka-producer"}
}

func (d *containerDependency) Start(ctx context.Context) error {
	return d.app.buildContainer()
}

func (d *containerDependency) Stop(ctx context.Context) error {
	return nil
}

type httpServerDependency struct {
	app *App
}

func (d *httpServerDependency) GetName() string {
	return "http-server"
}

func (d *httpServerDependency) DependsOn() []string {
	return []string{"container"}
}

func (d *httpServerDependency) Start(ctx context.Context) error {
	e, err := d.app.buildServer()
	if err != nil {
		return err
	}
	d.app.echo = e

	go func() {
		addr := fmt.Sprintf(":%d", d.app.cfg.Port)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.app.serverErr <- err
		}
	}()

	return nil
}

func (d *httpServerDependency) Stop(ctx context.Context) error {
	if d.app.echo == nil {
		return nil
	}
	return d.app.echo.Shutdown(ctx)
}

// toneWorkerDependency runs the tone analysis consumers. Each worker is its
// own consumer in the same group, so partitions spread across them.
type toneWorkerDependency struct {
	app *App
}

func (d *toneWorkerDependency) GetName() string {
	return "tone-worker"
}

func (d *toneWorkerDependency) DependsOn() []string {
	return []string{"container"}
}

func (d *toneWorkerDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg

	workers := cfg.ToneWorkerCount
	if workers < 1 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		consumerCfg := kafka.DefaultConsumerConfig()
		consumerCfg.Brokers = cfg.KafkaBrokers
		consumerCfg.Topic = cfg.KafkaToneTopic
		consumerCfg.GroupID = cfg.KafkaConsumerGroup

		consumer, err := kafka.NewConsumer(consumerCfg, d.app.logger)
		if err != nil {
			return err
		}

		if err := consumer.Start(ctx, d.app.processor.MessageHandler()); err != nil {
			return err
		}

		d.app.consumers = append(d.app.consumers, consumer)
	}

	d.app.logger.Infof("Started %d tone workers on topic %s", workers, cfg.KafkaToneTopic)
	return nil
}

func (d *toneWorkerDependency) Stop(ctx context.Context) error {
	var firstErr error
	for _, consumer := range d.app.consumers {
		if err := consumer.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
