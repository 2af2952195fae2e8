// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/gcp-go-video-moderation/internal/cloud"
	"github.com/jaycherian/gcp-go-video-moderation/internal/telemetry"
)

func corsConfig(config *cloud.Config) gin.HandlerFunc {
	if len(config.Server.AllowedOrigins) == 0 {
		return cors.Default()
	}
	c := cors.DefaultConfig()
	c.AllowOrigins = config.Server.AllowedOrigins
	c.AllowHeaders = append(c.AllowHeaders, "Accept")
	return cors.New(c)
}

// NewRouter builds the gin engine with tracing, CORS and the /api routes.
func NewRouter(config *cloud.Config) *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = config.Server.MaxUploadMegabytes << 20

	r.Use(otelgin.Middleware(config.Application.Name))
	r.Use(corsConfig(config))

	apiGroup := r.Group("/api")
	{
		state.handlers.Register(apiGroup)
	}
	return r
}

func main() {
	telemetry.SetupLogging(telemetry.LoggingOptions{})
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config, err := GetConfig()
	if err != nil {
		log.Fatal(err)
	}

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	if err := InitState(ctx); err != nil {
		slog.Error("Failed to initialize state", "error", err)
		log.Fatal(err)
	}
	defer CloseState()
	slog.Info("Initialized State", "analyzer", config.Application.Analyzer,
		"storage", config.Storage.Backend, "history", config.History.Backend)

	srv := &http.Server{
		Addr:    config.Server.Address,
		Handler: NewRouter(config),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to listen", "error", err)
			cancel()
		}
	}()
	slog.Info("Server ready", "address", config.Server.Address)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	slog.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(config.Server.ShutdownSeconds)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed", "error", err)
	}
	cancel()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Error("Telemetry shutdown failed", "error", err)
	}

	slog.Info("Server exiting")
}
