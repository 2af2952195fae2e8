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

// Package cloud holds the application configuration and the clients used to
// talk to Google Cloud. The configuration is decoded from TOML files (see
// LoadConfig); the clients are created by NewCloudServiceClients, which only
// connects to the services the configuration actually selects.
package cloud

import (
	"fmt"

	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"google.golang.org/genai"
)

// Analyzer kinds.
const (
	AnalyzerMock   = "mock"
	AnalyzerGemini = "gemini"
)

// Backend kinds shared by storage and history.
const (
	BackendLocal    = "local"
	BackendGCS      = "gcs"
	BackendMemory   = "memory"
	BackendBigQuery = "bigquery"
	BackendBadger   = "badger"
)

// Well known keys of the model and subscription maps.
const (
	StandardModel      = "standard"
	AdvancedModel      = "advanced"
	UploadSubscription = "uploads"
)

// DefaultSafetySettings leaves every harm category unblocked: the analysis
// must see the very content it is asked to classify.
var DefaultSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
}

// Server configures the reference HTTP server.
type Server struct {
	Address             string   `toml:"address"`               // Listen address, e.g. ":8080".
	ShutdownSeconds     int      `toml:"shutdown_seconds"`      // Grace period for in-flight requests.
	MaxUploadMegabytes  int64    `toml:"max_upload_megabytes"`  // Multipart memory limit.
	AllowedOrigins      []string `toml:"allowed_origins"`       // CORS origins; empty allows all.
	StreamBufferEntries int      `toml:"stream_buffer_entries"` // Buffered fragments per streamed analysis.
}

// Dashboard configures the terminal client. Each field can be overridden from
// the environment with the MODERATOR_ prefix.
type Dashboard struct {
	BaseURL        string `toml:"base_url" envconfig:"BASE_URL"`
	Transport      string `toml:"transport" envconfig:"TRANSPORT"` // "stream" or "buffered".
	TimeoutSeconds int    `toml:"timeout_seconds" envconfig:"TIMEOUT_SECONDS"`
	Color          bool   `toml:"color" envconfig:"COLOR"`
}

// Storage selects where uploaded videos are kept.
type Storage struct {
	Backend  string `toml:"backend"`   // "local" or "gcs".
	LocalDir string `toml:"local_dir"` // Directory for the local backend.
	Bucket   string `toml:"bucket"`    // Bucket for the gcs backend.
	Prefix   string `toml:"prefix"`    // Object name prefix for uploads.
}

// BigQueryDataSource names the tables of the bigquery history backend.
type BigQueryDataSource struct {
	DatasetName   string `toml:"dataset"`
	AnalysisTable string `toml:"analysis_table"`
	DecisionTable string `toml:"decision_table"`
}

// History selects the history backend.
type History struct {
	Backend   string `toml:"backend"` // "memory", "badger" or "bigquery".
	Dir       string `toml:"dir"`     // Database directory for the badger backend.
	ListLimit int    `toml:"list_limit"`
}

// PromptTemplates holds one Go text/template per capability. Templates may use
// {{.EXAMPLE_JSON}}, {{.VIDEO_NAME}} and {{.ADVANCED}}.
type PromptTemplates struct {
	Summary            string `toml:"summary"`
	ObjectDetection    string `toml:"object_detection"`
	Transcription      string `toml:"transcription"`
	AudioAnalysis      string `toml:"audio_analysis"`
	SymbolDetection    string `toml:"symbol_detection"`
	SceneDetection     string `toml:"scene_detection"`
	PointOfInterest    string `toml:"point_of_interest"`
	EmotionRecognition string `toml:"emotion_recognition"`
}

// For returns the template text of a capability.
func (p PromptTemplates) For(c model.Capability) (string, error) {
	var out string
	switch c {
	case model.Summary:
		out = p.Summary
	case model.ObjectDetection:
		out = p.ObjectDetection
	case model.Transcription:
		out = p.Transcription
	case model.AudioAnalysis:
		out = p.AudioAnalysis
	case model.SymbolDetection:
		out = p.SymbolDetection
	case model.SceneDetection:
		out = p.SceneDetection
	case model.PointOfInterest:
		out = p.PointOfInterest
	case model.EmotionRecognition:
		out = p.EmotionRecognition
	}
	if out == "" {
		return "", fmt.Errorf("no prompt template configured for %s", c)
	}
	return out, nil
}

// VertexAiLLMModel configures one Gemini model.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`
	SystemInstructions string  `toml:"system_instructions"`
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"`
	RateLimit          int     `toml:"rate_limit"`           // Requests per second.
	BreakerFailures    uint32  `toml:"breaker_failures"`     // Consecutive failures that open the breaker.
	BreakerOpenSeconds int     `toml:"breaker_open_seconds"` // Time the breaker stays open.
}

// TopicSubscription configures one Pub/Sub subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Topics names the topics the server publishes to.
type Topics struct {
	Decisions string `toml:"decisions"` // Admin decisions; empty disables publishing.
}

// Config is the root of the TOML configuration.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`
		GoogleProjectId           string `toml:"google_project_id"`
		GoogleLocation            string `toml:"location"`
		ThreadPoolSize            int    `toml:"thread_pool_size"` // Concurrent capability analyses per video.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"`
		Analyzer                  string `toml:"analyzer"` // "mock" or "gemini".
		FFMpegPath                string `toml:"ffmpeg_path"`
		Telemetry                 bool   `toml:"telemetry"` // Export traces and metrics to Google Cloud.
	} `toml:"application"`
	Server             Server                       `toml:"server"`
	Dashboard          Dashboard                    `toml:"dashboard"`
	Storage            Storage                      `toml:"storage"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	History            History                      `toml:"history"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
	Topics             Topics                       `toml:"topics"`
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`
}

// NewConfig returns a Config with defaults for everything a local run needs.
func NewConfig() *Config {
	c := &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
	c.Application.Name = "video-moderation"
	c.Application.ThreadPoolSize = 4
	c.Application.Analyzer = AnalyzerMock
	c.Application.FFMpegPath = "ffmpeg"
	c.Server.Address = ":8080"
	c.Server.ShutdownSeconds = 5
	c.Server.MaxUploadMegabytes = 512
	c.Server.StreamBufferEntries = 64
	c.Dashboard.BaseURL = "http://localhost:8080"
	c.Dashboard.Transport = "stream"
	c.Dashboard.TimeoutSeconds = 600
	c.Storage.Backend = BackendLocal
	c.Storage.LocalDir = "uploads"
	c.History.Backend = BackendMemory
	c.History.Dir = "data/history"
	c.History.ListLimit = 100
	return c
}
