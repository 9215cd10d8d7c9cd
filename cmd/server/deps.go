package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"todo-service/internal/config"
	"todo-service/internal/repository"
	"todo-service/internal/repository/sqlite"
	"todo-service/internal/snapshot"
	"todo-service/internal/storage"
)

func newLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

type store struct {
	db    *sql.DB
	todos repository.TodoRepository
	users repository.UserRepository
}

func openStore(ctx context.Context, cfg config.Config) (*store, error) {
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	st := &store{
		db:    db,
		todos: sqlite.NewTodoRepository(db),
		users: sqlite.NewUserRepository(db),
	}
	if err := st.todos.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init todo repository: %w", err)
	}
	if err := st.users.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init user repository: %w", err)
	}
	return st, nil
}

func newSnapshotManager(ctx context.Context, cfg config.Config, st *store, logger *logrus.Logger) (snapshot.Manager, error) {
	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return snapshot.NewManager(snapshot.Config{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
		Interval:  cfg.Snapshot.Interval,
		Retain:    cfg.Snapshot.Retain,
		Logger:    logger,
	}, st.todos, st.users, storageSvc), nil
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
