package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"todo-service/internal/config"
	apphttp "todo-service/internal/http"
	"todo-service/internal/repository/sqlite"
	"todo-service/internal/service"
	"todo-service/internal/snapshot"
)

var rootCmd = &cobra.Command{
	Use:   "todo-server",
	Short: "Todo list HTTP service",
	Long: `todo-server serves a JSON todo list over HTTP, backed by SQLite.

With auth enabled (the default) users register and log in to receive a
bearer token, and each user only sees their own todos.

Configuration comes from TODO_* environment variables, a .env file or
config.{yaml,json,toml} in the working directory.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export one snapshot of the database to the configured bucket",
	RunE:  runSnapshot,
}

func init() {
	rootCmd.AddCommand(serveCmd, snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock, err := sqlite.AcquireLock(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("lock database: %w", err)
	}
	defer lock.Unlock()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.db.Close()

	scope, err := service.ParseIDScope(cfg.Todo.IDScope)
	if err != nil {
		return err
	}
	todoService := service.NewTodoService(st.todos, service.NewIDAllocator(st.todos, scope), cfg.Auth.Enabled)

	var userService service.UserService
	if cfg.Auth.Enabled {
		tokens := service.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.TokenTTL())
		userService = service.NewUserService(st.users, tokens, cfg.Auth.BcryptCost)
	} else {
		logger.Warn("auth disabled: todos are shared by every caller")
	}

	var snapshots snapshot.Manager
	if cfg.Storage.Bucket != "" {
		snapshots, err = newSnapshotManager(ctx, cfg, st, logger)
		if err != nil {
			return fmt.Errorf("setup snapshots: %w", err)
		}
		if err := snapshots.Start(ctx); err != nil {
			return fmt.Errorf("start snapshots: %w", err)
		}
		defer snapshots.Shutdown()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(apphttp.Recovery(logger))
	apphttp.NewHandler(todoService, userService, logger).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":     cfg.Server.Addr,
			"auth":     cfg.Auth.Enabled,
			"id_scope": scope,
		}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
	return nil
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if cfg.Storage.Bucket == "" {
		return errors.New("storage bucket is required for snapshots")
	}

	ctx := cmd.Context()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.db.Close()

	snapshots, err := newSnapshotManager(ctx, cfg, st, logger)
	if err != nil {
		return fmt.Errorf("setup snapshots: %w", err)
	}

	key, err := snapshots.SnapshotNow(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), key)
	return nil
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
