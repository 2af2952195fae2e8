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

package analyzers_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-moderation/internal/cloud"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestMockReturnsExamples(t *testing.T) {
	m := &analyzers.Mock{}
	for _, c := range model.AllCapabilities() {
		raw, err := m.Analyze(context.Background(), analyzers.Request{Capability: c})
		require.NoError(t, err, c.String())
		assert.NoError(t, analyzers.CheckShape(c, raw), c.String())
	}
}

func TestMockFailureAndCancel(t *testing.T) {
	boom := errors.New("boom")
	m := &analyzers.Mock{Failures: map[model.Capability]error{model.Transcription: boom}}
	_, err := m.Analyze(context.Background(), analyzers.Request{Capability: model.Transcription})
	assert.ErrorIs(t, err, boom)

	slow := &analyzers.Mock{Delay: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = slow.Analyze(ctx, analyzers.Request{Capability: model.Summary})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckShapeRejectsWrongType(t *testing.T) {
	assert.Error(t, analyzers.CheckShape(model.Summary, json.RawMessage(`not json`)))
	assert.Error(t, analyzers.CheckShape(model.EmotionRecognition, json.RawMessage(`{"Emotion":"joy"}`)))
	assert.NoError(t, analyzers.CheckShape(model.EmotionRecognition, json.RawMessage(`[{"Emotion":"joy","Score":"0.4"}]`)))
}

type recordingGenerator struct {
	model    string
	contents []*genai.Content
	reply    string
}

func (r *recordingGenerator) GenerateContent(_ context.Context, name string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	r.model = name
	r.contents = contents
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: r.reply}}}}},
	}, nil
}

func newGemini(t *testing.T, reply string) (*analyzers.Gemini, *recordingGenerator, *services.LocalVideoStore) {
	t.Helper()
	gen := &recordingGenerator{reply: reply}
	config := cloud.NewConfig()
	config.PromptTemplates.Summary = "Summarise {{.VIDEO_NAME}} advanced={{.ADVANCED}} like {{.EXAMPLE_JSON}}"
	clients := &cloud.ServiceClients{AgentModels: map[string]*cloud.QuotaAwareGenerativeAIModel{
		cloud.StandardModel: cloud.NewQuotaAwareModel(&genai.GenerateContentConfig{}, "flash", gen, 100),
		cloud.AdvancedModel: cloud.NewQuotaAwareModel(&genai.GenerateContentConfig{}, "pro", gen, 100),
	}}
	store, err := services.NewLocalVideoStore(t.TempDir())
	require.NoError(t, err)
	g, err := analyzers.NewGemini(config, clients, store)
	require.NoError(t, err)
	return g, gen, store
}

func TestGeminiPromptAndModelSelection(t *testing.T) {
	summary, _ := json.Marshal(model.GetExampleSummary())
	g, gen, _ := newGemini(t, "```json\n"+string(summary)+"\n```")

	video := services.StoredVideo{Name: "clip.mp4", URI: "gs://bucket/clip.mp4", MIMEType: "video/mp4"}
	raw, err := g.Analyze(context.Background(), analyzers.Request{Capability: model.Summary, Advanced: true, Video: video})
	require.NoError(t, err)
	assert.JSONEq(t, string(summary), string(raw))
	assert.Equal(t, "pro", gen.model)

	require.Len(t, gen.contents, 1)
	parts := gen.contents[0].Parts
	require.Len(t, parts, 2)
	assert.True(t, strings.HasPrefix(parts[0].Text, "Summarise clip.mp4 advanced=true like {"))
	require.NotNil(t, parts[1].FileData)
	assert.Equal(t, "gs://bucket/clip.mp4", parts[1].FileData.FileURI)
}

func TestGeminiInlinesLocalVideo(t *testing.T) {
	summary, _ := json.Marshal(model.GetExampleSummary())
	g, gen, store := newGemini(t, string(summary))

	src := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(src, []byte("not really a video"), 0o644))
	f, err := os.Open(src)
	require.NoError(t, err)
	defer f.Close()
	video, err := store.Save(context.Background(), "clip.mp4", "video/mp4", f)
	require.NoError(t, err)

	_, err = g.Analyze(context.Background(), analyzers.Request{Capability: model.Summary, Video: video})
	require.NoError(t, err)
	assert.Equal(t, "flash", gen.model)
	require.NotNil(t, gen.contents[0].Parts[1].InlineData)
	assert.Equal(t, []byte("not really a video"), gen.contents[0].Parts[1].InlineData.Data)

	g.MaxInlineBytes = 4
	_, err = g.Analyze(context.Background(), analyzers.Request{Capability: model.Summary, Video: video})
	assert.ErrorContains(t, err, "inline limit")
}

func TestGeminiMissingTemplateAndBadReply(t *testing.T) {
	g, _, _ := newGemini(t, "I cannot help with that")
	video := services.StoredVideo{Name: "clip.mp4", URI: "gs://bucket/clip.mp4", MIMEType: "video/mp4"}

	_, err := g.Analyze(context.Background(), analyzers.Request{Capability: model.Transcription, Video: video})
	assert.ErrorContains(t, err, "no prompt template")

	_, err = g.Analyze(context.Background(), analyzers.Request{Capability: model.Summary, Video: video})
	assert.ErrorContains(t, err, "not valid JSON")
}
