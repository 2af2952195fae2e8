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
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jaycherian/gcp-go-video-moderation/internal/api"
	"github.com/jaycherian/gcp-go-video-moderation/internal/cloud"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/services"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/workflow"
)

// StateManager holds the process wide configuration, cloud clients and the
// HTTP handlers built from them.
type StateManager struct {
	config   *cloud.Config
	cloud    *cloud.ServiceClients
	history  services.HistoryStore
	handlers *api.Handlers
}

var state = &StateManager{}

// SetupOS points the configuration loader at ./configs with the local
// overlay unless the environment already says otherwise.
func SetupOS() error {
	defaults := map[string]string{
		cloud.EnvConfigFilePrefix: "configs",
		cloud.EnvConfigRuntime:    cloud.DefaultRuntime,
	}
	for key, value := range defaults {
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}

// GetConfig returns the loaded configuration. InitState must run first.
func GetConfig() (*cloud.Config, error) {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			return nil, fmt.Errorf("failed to setup os: %w", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			return nil, err
		}
		state.config = config
	}
	return state.config, nil
}

func newVideoStore(config *cloud.Config, clients *cloud.ServiceClients) (services.VideoStore, error) {
	switch config.Storage.Backend {
	case cloud.BackendLocal:
		return services.NewLocalVideoStore(config.Storage.LocalDir)
	case cloud.BackendGCS:
		if config.Storage.Bucket == "" {
			return nil, errors.New("storage.bucket is required for the gcs backend")
		}
		return &services.GCSVideoStore{
			Client:      clients.StorageClient,
			IAMClient:   clients.IAMClient,
			Bucket:      config.Storage.Bucket,
			Prefix:      config.Storage.Prefix,
			SignerEmail: config.Application.SignerServiceAccountEmail,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage backend: %q", config.Storage.Backend)
}

func newHistoryStore(config *cloud.Config, clients *cloud.ServiceClients) (services.HistoryStore, error) {
	switch config.History.Backend {
	case cloud.BackendMemory:
		return services.NewMemoryHistoryStore(), nil
	case cloud.BackendBadger:
		return services.OpenBadgerHistoryStore(config.History.Dir)
	case cloud.BackendBigQuery:
		return &services.BigQueryHistoryStore{
			Client:        clients.BiqQueryClient,
			DatasetName:   config.BigQueryDataSource.DatasetName,
			AnalysisTable: config.BigQueryDataSource.AnalysisTable,
			DecisionTable: config.BigQueryDataSource.DecisionTable,
		}, nil
	}
	return nil, fmt.Errorf("unknown history backend: %q", config.History.Backend)
}

func newAnalyzer(config *cloud.Config, clients *cloud.ServiceClients, store services.VideoStore) (analyzers.Analyzer, error) {
	switch config.Application.Analyzer {
	case cloud.AnalyzerMock:
		slog.Warn("using the mock analyzer; results are sample data")
		return &analyzers.Mock{Delay: 250 * time.Millisecond}, nil
	case cloud.AnalyzerGemini:
		return analyzers.NewGemini(config, clients, store)
	}
	return nil, fmt.Errorf("unknown analyzer: %q", config.Application.Analyzer)
}

// InitState loads configuration, connects the configured backends and builds
// the analysis workflow and HTTP handlers. It must run once before NewRouter.
func InitState(ctx context.Context) error {
	config, err := GetConfig()
	if err != nil {
		return err
	}

	clients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	state.cloud = clients

	store, err := newVideoStore(config, clients)
	if err != nil {
		return err
	}
	history, err := newHistoryStore(config, clients)
	if err != nil {
		return err
	}
	state.history = history
	analyzer, err := newAnalyzer(config, clients, store)
	if err != nil {
		return err
	}

	decisions := &services.DecisionService{History: history}
	if clients.DecisionTopic != nil {
		decisions.Publisher = clients.DecisionTopic
	}

	state.handlers = &api.Handlers{
		Runner:       workflow.NewAnalysisWorkflow(store, history, analyzer, config.Application.ThreadPoolSize),
		History:      history,
		Decisions:    decisions,
		Videos:       store,
		Frames:       &services.FrameExtractor{CommandPath: config.Application.FFMpegPath, Store: store},
		HistoryLimit: config.History.ListLimit,
		StreamBuffer: config.Server.StreamBufferEntries,
	}

	SetupListeners(ctx, config, clients, history, analyzer)
	return nil
}

// SetupListeners analyses every video dropped into the upload bucket when an
// uploads subscription is configured.
func SetupListeners(ctx context.Context, config *cloud.Config, clients *cloud.ServiceClients, history services.HistoryStore, analyzer analyzers.Analyzer) {
	listener, ok := clients.PubSubListeners[cloud.UploadSubscription]
	if !ok {
		slog.Debug("no uploads subscription configured")
		return
	}
	listener.SetCommand(workflow.NewUploadTriggerWorkflow(history, analyzer, config.Application.ThreadPoolSize))
	listener.Listen(ctx)
	slog.Info("listening for bucket uploads", "subscription", config.TopicSubscriptions[cloud.UploadSubscription].Name)
}

// CloseState releases the history store and the cloud clients.
func CloseState() {
	if closer, ok := state.history.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			slog.Error("failed to close history store", "error", err)
		}
	}
	if state.cloud != nil {
		state.cloud.Close()
	}
}
