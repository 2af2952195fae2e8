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

package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-video-moderation/internal/api"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/services"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-video-moderation/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFrames struct {
	frames int
}

func (f *fakeFrames) ExtractFrame(_ context.Context, _ services.StoredVideo, frame int) ([]byte, error) {
	if frame >= f.frames {
		return nil, services.ErrFrameOutOfRange
	}
	return []byte{0xFF, 0xD8, 0xFF, byte(frame)}, nil
}

type failingRunner struct{}

func (failingRunner) Run(context.Context, *commands.Upload, model.AnalysisSettings, model.AdvancedSettings, cor.Reporter) (*workflow.Outcome, error) {
	return nil, errors.New("analyzer offline")
}

type fixture struct {
	router   *gin.Engine
	handlers *api.Handlers
	history  *services.MemoryHistoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config := test.GetConfig()

	store, err := services.NewLocalVideoStore(t.TempDir())
	require.NoError(t, err)
	history := services.NewMemoryHistoryStore()
	h := &api.Handlers{
		Runner:       workflow.NewAnalysisWorkflow(store, history, &analyzers.Mock{}, config.Application.ThreadPoolSize),
		History:      history,
		Decisions:    &services.DecisionService{History: history},
		Videos:       store,
		Frames:       &fakeFrames{frames: 10},
		HistoryLimit: config.History.ListLimit,
		StreamBuffer: config.Server.StreamBufferEntries,
	}
	r := gin.New()
	h.Register(r.Group("/api"))
	return &fixture{router: r, handlers: h, history: history}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, video []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if video != nil {
		part, err := mw.CreateFormFile(api.FieldVideo, "clip.mp4")
		require.NoError(t, err)
		_, err = part.Write(video)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/analyze-video", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (f *fixture) analyze(t *testing.T) model.AnalyzeResponse {
	t.Helper()
	w := f.do(uploadRequest(t, test.MP4Header(), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out model.AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out.Error
}

func TestAnalyzeVideoBuffered(t *testing.T) {
	f := newFixture(t)
	out := f.analyze(t)

	assert.NotEmpty(t, out.AnalysisID)
	assert.True(t, out.Results.Equal(model.GetExampleResults()))

	record, err := f.history.Get(context.Background(), out.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", record.VideoName)
	assert.Equal(t, "video/mp4", record.Video.MIMEType)
}

func TestAnalyzeVideoSelectedSettings(t *testing.T) {
	f := newFixture(t)
	settings := model.NewAnalysisSettings()
	settings.Set(model.Summary, true)
	settings.Set(model.EmotionRecognition, true)
	raw, err := json.Marshal(settings)
	require.NoError(t, err)

	w := f.do(uploadRequest(t, test.MP4Header(), map[string]string{
		api.FieldSettings:         string(raw),
		api.FieldAdvancedSettings: `{"summary":"yes"}`,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out model.AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, []string{"emotions", "summary"}, out.Results.Keys())
}

func TestAnalyzeVideoStreaming(t *testing.T) {
	f := newFixture(t)
	req := uploadRequest(t, test.MP4Header(), nil)
	req.Header.Set("Accept", api.NDJSONContentType)

	w := f.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, api.NDJSONContentType, w.Header().Get("Content-Type"))

	var events []model.StreamEvent
	scanner := bufio.NewScanner(w.Body)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	for scanner.Scan() {
		var ev model.StreamEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev), scanner.Text())
		events = append(events, ev)
	}
	require.NotEmpty(t, events)

	last := -1.0
	logs := 0
	for _, ev := range events {
		if ev.Progress != nil {
			assert.GreaterOrEqual(t, *ev.Progress, last)
			last = *ev.Progress
		}
		if ev.Log != nil {
			logs++
		}
		assert.Empty(t, ev.Error)
	}
	assert.Equal(t, 100.0, last)
	assert.GreaterOrEqual(t, logs, len(model.AllCapabilities()))

	final := events[len(events)-1]
	assert.NotEmpty(t, final.AnalysisID)
	assert.True(t, final.Results.Equal(model.GetExampleResults()))
}

func TestAnalyzeVideoRejectsBadRequests(t *testing.T) {
	f := newFixture(t)

	w := f.do(uploadRequest(t, nil, map[string]string{api.FieldSettings: `{}`}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No video file provided", errorOf(t, w))

	w = f.do(uploadRequest(t, []byte("plain text, not a video"), nil))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = f.do(uploadRequest(t, test.MP4Header(), map[string]string{api.FieldSettings: `{"summary":false}`}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No analysis capability selected", errorOf(t, w))

	w = f.do(uploadRequest(t, test.MP4Header(), map[string]string{api.FieldSettings: `{broken`}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.HasPrefix(errorOf(t, w), "Invalid settings"))
}

func TestAnalyzeVideoFailure(t *testing.T) {
	f := newFixture(t)
	f.handlers.Runner = failingRunner{}

	w := f.do(uploadRequest(t, test.MP4Header(), nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "An error occurred during video analysis: analyzer offline", errorOf(t, w))

	req := uploadRequest(t, test.MP4Header(), nil)
	req.Header.Set("Accept", api.NDJSONContentType)
	w = f.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	var ev model.StreamEvent
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(w.Body.Bytes()), &ev))
	assert.Equal(t, "An error occurred during video analysis: analyzer offline", ev.Error)
}

func decisionRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/admin-decision", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAdminDecision(t *testing.T) {
	f := newFixture(t)
	analysis := f.analyze(t)

	w := f.do(decisionRequest(`{"analysisId":"` + analysis.AnalysisID + `","contentLabel":"18+","adSuitability":20,"copyrightViolation":false,"prohibitedContent":true,"recommendationLevel":"Not Recommended"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/get-analysis-history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var history model.HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.History, 1)
	decision, err := history.History[0].Analysis.AdminDecision()
	require.NoError(t, err)
	require.NotNil(t, decision)
	assert.Equal(t, model.LabelAdult, decision.ContentLabel)

	w = f.do(decisionRequest(`{"contentLabel":"purple"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorOf(t, w), "contentLabel must be one of")

	w = f.do(decisionRequest(`{"analysisId":"missing","contentLabel":"white"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(decisionRequest(`not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(decisionRequest(`{"contentLabel":"gray"}`))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHistoryShapeAndLimit(t *testing.T) {
	f := newFixture(t)
	f.analyze(t)
	f.analyze(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/get-analysis-history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var raw map[string][]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	require.Len(t, raw["history"], 2)
	for _, item := range raw["history"] {
		for _, key := range []string{"id", "video_name", "analysis", "created_at"} {
			assert.Contains(t, item, key)
		}
	}

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/get-analysis-history?limit=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Len(t, raw["history"], 1)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/get-analysis-history?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFrame(t *testing.T) {
	f := newFixture(t)
	analysis := f.analyze(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/frame/3?analysis="+analysis.AnalysisID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 3}, w.Body.Bytes())

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/frame/99?analysis="+analysis.AnalysisID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/frame/abc?analysis="+analysis.AnalysisID, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/frame/1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/frame/1?analysis=unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVideoStreamFallsBackToFile(t *testing.T) {
	f := newFixture(t)
	analysis := f.analyze(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/video/"+analysis.AnalysisID+"/stream", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "/api/video/"+analysis.AnalysisID+"/file", out["url"])

	w = f.do(httptest.NewRequest(http.MethodGet, out["url"], nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, test.MP4Header(), w.Body.Bytes())

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/video/unknown/stream", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	analysis := f.analyze(t)
	f.analyze(t)
	w := f.do(decisionRequest(`{"analysisId":"` + analysis.AnalysisID + `","contentLabel":"black"}`))
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Analyses)
	assert.Equal(t, 1, stats.Decisions)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.ByContentLabel["black"])
}
