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

package workflow_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jaycherian/gcp-go-video-moderation/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/services"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-video-moderation/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var logger = otelslog.NewLogger("github.com/jaycherian/gcp-go-video-moderation/internal/core/workflow")

func newWorkflow(t *testing.T, analyzer analyzers.Analyzer) (*workflow.AnalysisWorkflow, *services.MemoryHistoryStore) {
	t.Helper()
	store, err := services.NewLocalVideoStore(t.TempDir())
	require.NoError(t, err)
	history := services.NewMemoryHistoryStore()
	config := test.GetConfig()
	return workflow.NewAnalysisWorkflow(store, history, analyzer, config.Application.ThreadPoolSize), history
}

func upload() *commands.Upload {
	return &commands.Upload{Name: "clip.mp4", MIMEType: "video/mp4", Content: bytes.NewReader(test.MP4Header())}
}

func TestAnalysisWorkflowRun(t *testing.T) {
	wf, history := newWorkflow(t, &analyzers.Mock{})
	rep := &test.Reporter{}

	out, err := wf.Run(context.Background(), upload(), model.AllAnalysisSettings(), model.AdvancedSettings{}, rep)
	require.NoError(t, err)
	logger.Info("analysis finished", "id", out.AnalysisID, "results", out.Results.Keys())

	assert.Len(t, out.Results, len(model.AllCapabilities()))
	assert.True(t, out.Results.Equal(model.GetExampleResults()))

	_, statErr := os.Stat(out.Video.URI)
	assert.NoError(t, statErr)

	record, err := history.Get(context.Background(), out.AnalysisID)
	require.NoError(t, err)
	assert.True(t, record.Results.Equal(out.Results))

	progress := rep.Percentages()
	require.NotEmpty(t, progress)
	assert.Equal(t, commands.ProgressStored, progress[0])
	assert.Equal(t, commands.ProgressDone, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
}

func TestAnalysisWorkflowNothingSelected(t *testing.T) {
	wf, history := newWorkflow(t, &analyzers.Mock{})

	_, err := wf.Run(context.Background(), upload(), model.NewAnalysisSettings(), model.AdvancedSettings{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no analysis capability selected")

	stats, err := history.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Analyses)
}

func TestAnalysisWorkflowAllCapabilitiesFail(t *testing.T) {
	failures := map[model.Capability]error{}
	for _, c := range model.AllCapabilities() {
		failures[c] = errors.New("unavailable")
	}
	wf, _ := newWorkflow(t, &analyzers.Mock{Failures: failures})

	_, err := wf.Run(context.Background(), upload(), model.AllAnalysisSettings(), model.AdvancedSettings{}, nil)
	assert.ErrorContains(t, err, "capability analyses failed")
}

func TestAnalysisWorkflowCancelled(t *testing.T) {
	wf, _ := newWorkflow(t, &analyzers.Mock{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := wf.Run(ctx, upload(), model.AllAnalysisSettings(), model.AdvancedSettings{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUploadTriggerWorkflow(t *testing.T) {
	history := services.NewMemoryHistoryStore()
	wf := workflow.NewUploadTriggerWorkflow(history, &analyzers.Mock{}, 2)

	chCtx := cor.NewBaseContext()
	defer chCtx.Close()
	chCtx.SetContext(context.Background())
	chCtx.Add(cor.CtxIn, test.GetTestUploadMessageText())

	wf.Execute(chCtx)
	require.False(t, chCtx.HasErrors())

	items, err := history.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "test-clip-001.mp4", items[0].VideoName)
	assert.Equal(t, "gs://moderation_uploads/incoming/test-clip-001.mp4", items[0].Video.URI)
	assert.Len(t, items[0].Results, len(model.AllCapabilities()))
}
