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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-moderation/internal/cloud"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	test "github.com/jaycherian/gcp-go-video-moderation/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	history   []model.HistoryItem
	decisions []model.DecisionRequest
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/get-analysis-history":
		_ = json.NewEncoder(w).Encode(model.HistoryResponse{History: b.history})
	case r.Method == http.MethodPost && r.URL.Path == "/api/admin-decision":
		var req model.DecisionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.decisions = append(b.decisions, req)
		_ = json.NewEncoder(w).Encode(model.DecisionRecord{AnalysisID: req.AnalysisID, Decision: req.AdminDecision})
	case r.Method == http.MethodGet && r.URL.Path == "/api/stats":
		_ = json.NewEncoder(w).Encode(model.Stats{Analyses: 3, Decisions: 1, Pending: 2, ByContentLabel: map[string]int{"gray": 1}})
	case r.Method == http.MethodGet && r.URL.Path == "/api/video/a1/stream":
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "/api/video/a1/file"})
	case r.Method == http.MethodGet && r.URL.Path == "/api/frame/12":
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	default:
		http.NotFound(w, r)
	}
}

func newTestApp(t *testing.T) (*app, *fakeBackend, *bytes.Buffer) {
	t.Helper()
	backend := &fakeBackend{history: []model.HistoryItem{{
		ID:        "a1",
		VideoName: "clip.mp4",
		Analysis:  model.GetExampleResults(),
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	a := newApp(cloud.Dashboard{BaseURL: srv.URL, Transport: "stream", TimeoutSeconds: 5}, &out)
	return a, backend, &out
}

func TestParseToggles(t *testing.T) {
	var s model.AnalysisSettings
	require.NoError(t, parseToggles("summary, audio_analysis,symbols", &s.Toggles))
	assert.True(t, s.Enabled(model.Summary))
	assert.True(t, s.Enabled(model.AudioAnalysis))
	assert.True(t, s.Enabled(model.SymbolDetection))
	assert.False(t, s.Enabled(model.SceneDetection))

	var all model.AnalysisSettings
	require.NoError(t, parseToggles("all", &all.Toggles))
	assert.True(t, all.AllSelected())

	assert.Error(t, parseToggles("bogus", &s.Toggles))
}

func TestDecisionFlags(t *testing.T) {
	results := model.GetExampleResults()

	d, err := decisionFlags{ad: -1}.apply(results)
	require.NoError(t, err)
	assert.Equal(t, model.NewAdminDecision(), d)

	d, err = decisionFlags{ad: 20, label: "18+", level: "not recommended", prohibited: "yes", suggest: true}.apply(results)
	require.NoError(t, err)
	assert.Equal(t, 20, d.AdSuitability)
	assert.Equal(t, model.LabelAdult, d.ContentLabel)
	assert.Equal(t, model.NotRecommended, d.RecommendationLevel)
	assert.True(t, d.ProhibitedContent)

	_, err = decisionFlags{ad: 101}.apply(results)
	assert.ErrorIs(t, err, model.ErrInvalidDecision)
	_, err = decisionFlags{ad: -1, copyright: "maybe"}.apply(results)
	assert.Error(t, err)
}

func TestHistoryCommand(t *testing.T) {
	a, _, out := newTestApp(t)
	require.NoError(t, runHistory(context.Background(), a, nil))
	assert.Contains(t, out.String(), "Analysis History")
	assert.Contains(t, out.String(), "clip.mp4")
	assert.Contains(t, out.String(), "pending")
}

func TestShowCommand(t *testing.T) {
	a, _, out := newTestApp(t)
	require.NoError(t, runShow(context.Background(), a, []string{"-tab", "emotions", "a1"}))
	assert.Contains(t, out.String(), "Emotions")
	assert.NotContains(t, out.String(), "Scenes")

	assert.ErrorIs(t, runShow(context.Background(), a, nil), errUsage)
	assert.Error(t, runShow(context.Background(), a, []string{"missing"}))
}

func TestDecideCommand(t *testing.T) {
	a, backend, out := newTestApp(t)
	require.NoError(t, runDecide(context.Background(), a, []string{"-label", "gray", "-ad", "30", "a1"}))
	require.Len(t, backend.decisions, 1)
	assert.Equal(t, "a1", backend.decisions[0].AnalysisID)
	assert.Equal(t, model.LabelGray, backend.decisions[0].ContentLabel)
	assert.Equal(t, 30, backend.decisions[0].AdSuitability)
	assert.Contains(t, out.String(), "Current decision\n")
}

func TestFramePlayStats(t *testing.T) {
	a, _, out := newTestApp(t)
	name := filepath.Join(t.TempDir(), "f.jpg")
	require.NoError(t, runFrame(context.Background(), a, []string{"-n", "12", "-o", name, "a1"}))
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)

	require.NoError(t, runPlay(context.Background(), a, []string{"a1"}))
	assert.Contains(t, out.String(), "/api/video/a1/file")

	require.NoError(t, runStats(context.Background(), a, nil))
	assert.Contains(t, out.String(), "Pending: 2")
}

func TestLoadDashboardEnvOverride(t *testing.T) {
	t.Setenv(cloud.EnvConfigFilePrefix, test.ConfigDir())
	t.Setenv(cloud.EnvConfigRuntime, "test")
	t.Setenv("MODERATOR_BASE_URL", "http://moderation.internal:9000")
	t.Setenv("MODERATOR_TRANSPORT", "buffered")

	d, err := loadDashboard()
	require.NoError(t, err)
	assert.Equal(t, "http://moderation.internal:9000", d.BaseURL)
	assert.Equal(t, "buffered", d.Transport)

	t.Setenv("MODERATOR_TRANSPORT", "carrier-pigeon")
	_, err = loadDashboard()
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"analyze", "history", "show", "decide", "frame", "stats"} {
		_, ok := lookup(name)
		assert.True(t, ok, name)
	}
	_, ok := lookup("delete")
	assert.False(t, ok)
}
