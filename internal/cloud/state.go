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

package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

// ServiceClients holds every Google Cloud client the server uses. Clients for
// services the configuration does not select are left nil.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	GenAIClient     *genai.Client
	BiqQueryClient  *bigquery.Client
	IAMClient       *credentials.IamCredentialsClient
	PubSubListeners map[string]*PubSubListener              // Keyed by the name used in [topic_subscriptions].
	AgentModels     map[string]*QuotaAwareGenerativeAIModel // Keyed by the name used in [agent_models].
	DecisionTopic   *PubSubPublisher                        // Nil when [topics].decisions is empty.
}

// Close releases every client that was opened.
func (c *ServiceClients) Close() {
	if c.DecisionTopic != nil {
		c.DecisionTopic.Stop()
	}
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
	if c.BiqQueryClient != nil {
		_ = c.BiqQueryClient.Close()
	}
	if c.IAMClient != nil {
		_ = c.IAMClient.Close()
	}
}

// NewCloudServiceClients connects to the services selected by config:
//   - storage and IAM credentials when storage.backend is "gcs",
//   - BigQuery when history.backend is "bigquery",
//   - Gemini when application.analyzer is "gemini",
//   - Pub/Sub when subscriptions or a decision topic are configured.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	cloud = &ServiceClients{
		PubSubListeners: make(map[string]*PubSubListener),
		AgentModels:     make(map[string]*QuotaAwareGenerativeAIModel),
	}
	defer func() {
		if err != nil {
			cloud.Close()
			cloud = nil
		}
	}()

	projectID := config.Application.GoogleProjectId

	if config.Storage.Backend == BackendGCS {
		if cloud.StorageClient, err = storage.NewClient(ctx); err != nil {
			return cloud, fmt.Errorf("failed to create storage client: %w", err)
		}
		if cloud.IAMClient, err = credentials.NewIamCredentialsClient(ctx); err != nil {
			return cloud, fmt.Errorf("failed to create iam credentials client: %w", err)
		}
	}

	if config.History.Backend == BackendBigQuery {
		if cloud.BiqQueryClient, err = bigquery.NewClient(ctx, projectID); err != nil {
			return cloud, fmt.Errorf("failed to create bigquery client: %w", err)
		}
	}

	if len(config.TopicSubscriptions) > 0 || config.Topics.Decisions != "" {
		if cloud.PubsubClient, err = pubsub.NewClient(ctx, projectID); err != nil {
			return cloud, fmt.Errorf("failed to create pubsub client: %w", err)
		}
		for key, values := range config.TopicSubscriptions {
			listener, err := NewPubSubListener(cloud.PubsubClient, values.Name, nil)
			if err != nil {
				return cloud, err
			}
			cloud.PubSubListeners[key] = listener
		}
		if config.Topics.Decisions != "" {
			cloud.DecisionTopic = NewPubSubPublisher(cloud.PubsubClient.Topic(config.Topics.Decisions))
		}
	}

	if config.Application.Analyzer == AnalyzerGemini {
		slog.Info("creating genai client", "project", projectID, "location", config.Application.GoogleLocation)
		cloud.GenAIClient, err = genai.NewClient(ctx, &genai.ClientConfig{
			Project:  projectID,
			Location: config.Application.GoogleLocation,
			Backend:  genai.BackendVertexAI,
		})
		if err != nil {
			return cloud, fmt.Errorf("failed to create genai client: %w", err)
		}
		for key, values := range config.AgentModels {
			cloud.AgentModels[key] = NewQuotaAwareModel(
				NewGenerateContentConfig(values),
				values.Model,
				cloud.GenAIClient.Models,
				values.RateLimit,
				WithBreaker(values.BreakerFailures, time.Duration(values.BreakerOpenSeconds)*time.Second))
		}
	}

	return cloud, nil
}
