package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/botlisten/botcast/internal/common/config"
	"github.com/botlisten/botcast/internal/reaction"
	"github.com/botlisten/botcast/internal/registry"
	"github.com/botlisten/botcast/internal/router"
	"github.com/botlisten/botcast/internal/stream"
	"github.com/botlisten/botcast/pkg/logger"
	"github.com/botlisten/botcast/pkg/metrics"
	"github.com/botlisten/botcast/pkg/version"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of botcast",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("botcast version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "botcast",
		Short: "Bot listener relay server",
		Long:  `botcast relays one broadcaster's stream to bot viewers over websockets and routes their reactions back`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "botcast.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	cfg, cfgPath, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("Starting botcast",
		zap.String("version", version.Get()),
		zap.String("config", cfgPath))

	store, err := stream.NewStore(zapLogger, &cfg.Stream)
	if err != nil {
		zapLogger.Fatal("Failed to initialize stream store", zap.Error(err))
	}

	m := metrics.New(cfg.Metrics)
	reg := registry.New(zapLogger, m)
	gen := reaction.NewOpenAIGenerator(zapLogger, &cfg.OpenAI)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(m.Middleware())

	router.New(zapLogger, cfg, store, reg, gen, m).RegisterRoutes(engine)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		zapLogger.Info("Listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shutdown server", zap.Error(err))
	}

	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			zapLogger.Error("Failed to close stream store", zap.Error(err))
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
