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

package telemetry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/jaycherian/gcp-go-video-moderation/internal/cloud"
	"github.com/jaycherian/gcp-go-video-moderation/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestLoggingAddsTraceFields(t *testing.T) {
	ctx := context.Background()
	shutdown, err := telemetry.SetupOpenTelemetry(ctx, cloud.NewConfig())
	require.NoError(t, err)
	defer func() { _ = shutdown(ctx) }()

	var buf bytes.Buffer
	telemetry.SetupLogging(telemetry.LoggingOptions{Writer: &buf, Level: slog.LevelInfo})

	spanCtx, span := otel.Tracer("telemetry-test").Start(ctx, "log")
	slog.WarnContext(spanCtx, "hello", "k", "v")
	span.End()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARNING", entry["severity"])
	assert.Equal(t, "hello", entry["message"])
	assert.Contains(t, entry, "timestamp")
	assert.Contains(t, entry, "logging.googleapis.com/trace")
	assert.Equal(t, "v", entry["k"])
}

func TestLoggingWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	telemetry.SetupLogging(telemetry.LoggingOptions{Writer: &buf, Level: slog.LevelInfo})

	slog.With("component", "x").Info("plain")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "logging.googleapis.com/trace")
	assert.Equal(t, "x", entry["component"])
}
