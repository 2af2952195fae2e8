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

package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/jaycherian/gcp-go-video-moderation/internal/cloud"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/services"
	test "github.com/jaycherian/gcp-go-video-moderation/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(reporter cor.Reporter) cor.Context {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.SetReporter(reporter)
	return chCtx
}

func TestMediaTriggerToVideo(t *testing.T) {
	cmd := commands.NewMediaTriggerToVideo("trigger")
	chCtx := newContext(nil)
	chCtx.Add(cor.CtxIn, test.GetTestUploadMessageText())

	cmd.Execute(chCtx)

	require.False(t, chCtx.HasErrors())
	video := chCtx.Get(commands.VideoKey).(services.StoredVideo)
	assert.Equal(t, "gs://moderation_uploads/incoming/test-clip-001.mp4", video.URI)
	assert.Equal(t, "test-clip-001.mp4", video.Name)
	assert.Equal(t, "video/mp4", video.MIMEType)
	assert.EqualValues(t, 259348037, video.Size)
	assert.NotNil(t, chCtx.Get(cloud.GCSObjectKey))
}

func TestMediaTriggerIgnoresNonVideo(t *testing.T) {
	cmd := commands.NewMediaTriggerToVideo("trigger")
	chCtx := newContext(nil)
	chCtx.Add(cor.CtxIn, `{"bucket":"b","name":"notes.txt","contentType":"text/plain"}`)

	cmd.Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	assert.Nil(t, chCtx.Get(commands.VideoKey))
}

func TestMediaTriggerRejectsGarbage(t *testing.T) {
	cmd := commands.NewMediaTriggerToVideo("trigger")
	chCtx := newContext(nil)
	chCtx.Add(cor.CtxIn, `{not json`)

	cmd.Execute(chCtx)

	assert.Contains(t, chCtx.GetErrors(), "trigger")
}

func TestVideoUploadStoresVideo(t *testing.T) {
	store, err := services.NewLocalVideoStore(t.TempDir())
	require.NoError(t, err)
	rep := &test.Reporter{}
	chCtx := newContext(rep)
	chCtx.Add(commands.UploadKey, &commands.Upload{Name: "clip.mp4", MIMEType: "video/mp4", Content: bytes.NewReader(test.MP4Header())})

	cmd := commands.NewVideoUpload("store", store)
	require.True(t, cmd.IsExecutable(chCtx))
	cmd.Execute(chCtx)

	require.False(t, chCtx.HasErrors())
	video := chCtx.Get(commands.VideoKey).(services.StoredVideo)
	assert.Equal(t, "clip.mp4", video.Name)
	assert.EqualValues(t, len(test.MP4Header()), video.Size)
	assert.Equal(t, []float64{commands.ProgressStored}, rep.Percentages())
	assert.Len(t, rep.Lines(), 2)
}

func selected(caps ...model.Capability) model.AnalysisSettings {
	s := model.NewAnalysisSettings()
	for _, c := range caps {
		s.Set(c, true)
	}
	return s
}

func TestCapabilityAnalysisReportsEachCapability(t *testing.T) {
	rep := &test.Reporter{}
	chCtx := newContext(rep)
	chCtx.Add(commands.VideoKey, services.StoredVideo{Name: "clip.mp4", URI: "/tmp/clip.mp4"})
	chCtx.Add(commands.SettingsKey, selected(model.Summary, model.Transcription, model.EmotionRecognition, model.SceneDetection))

	cmd := commands.NewCapabilityAnalysis("analyze", &analyzers.Mock{}, 2)
	require.True(t, cmd.IsExecutable(chCtx))
	cmd.Execute(chCtx)

	require.False(t, chCtx.HasErrors())
	results := chCtx.Get(commands.ResultsKey).(model.Results)
	assert.Equal(t, []string{"emotions", "scenes", "summary", "transcription"}, results.Keys())

	assert.Equal(t, []float64{27.5, 50, 72.5, 95}, rep.Percentages())
	assert.Len(t, rep.Lines(), 4)
	snapshots := rep.Snapshots()
	require.Len(t, snapshots, 4)
	for i, snap := range snapshots {
		assert.Len(t, snap, i+1)
	}
}

func TestCapabilityAnalysisOmitsFailures(t *testing.T) {
	rep := &test.Reporter{}
	chCtx := newContext(rep)
	chCtx.Add(commands.VideoKey, services.StoredVideo{Name: "clip.mp4"})
	chCtx.Add(commands.SettingsKey, selected(model.Summary, model.AudioAnalysis))

	analyzer := &analyzers.Mock{Failures: map[model.Capability]error{model.AudioAnalysis: errors.New("quota exhausted")}}
	commands.NewCapabilityAnalysis("analyze", analyzer, 4).Execute(chCtx)

	require.False(t, chCtx.HasErrors())
	results := chCtx.Get(commands.ResultsKey).(model.Results)
	assert.True(t, results.Has("summary"))
	assert.False(t, results.Has("audio"))
	assert.Contains(t, rep.Lines(), "Audio analysis failed: quota exhausted")
	assert.Len(t, rep.Snapshots(), 1)
}

func TestCapabilityAnalysisFailsWhenNothingSucceeds(t *testing.T) {
	chCtx := newContext(nil)
	chCtx.Add(commands.VideoKey, services.StoredVideo{Name: "clip.mp4"})
	chCtx.Add(commands.SettingsKey, selected(model.Summary))

	analyzer := &analyzers.Mock{Failures: map[model.Capability]error{model.Summary: errors.New("down")}}
	commands.NewCapabilityAnalysis("analyze", analyzer, 1).Execute(chCtx)

	assert.Contains(t, chCtx.GetErrors(), "analyze")
	assert.Nil(t, chCtx.Get(commands.ResultsKey))
}

func TestCapabilityAnalysisPassesAdvancedFlag(t *testing.T) {
	var seen []analyzers.Request
	chCtx := newContext(nil)
	chCtx.Add(commands.VideoKey, services.StoredVideo{Name: "clip.mp4"})
	chCtx.Add(commands.SettingsKey, selected(model.Summary, model.ObjectDetection))
	advanced := model.AdvancedSettings{}
	advanced.Set(model.ObjectDetection, true)
	chCtx.Add(commands.AdvancedKey, advanced)

	rec := analyzerFunc(func(_ context.Context, req analyzers.Request) ([]byte, error) {
		seen = append(seen, req)
		return []byte(`{}`), nil
	})
	commands.NewCapabilityAnalysis("analyze", rec, 1).Execute(chCtx)

	require.Len(t, seen, 2)
	for _, req := range seen {
		assert.Equal(t, req.Capability == model.ObjectDetection, req.Advanced, req.Capability.String())
	}
}

func TestHistoryPersistSavesRecord(t *testing.T) {
	history := services.NewMemoryHistoryStore()
	rep := &test.Reporter{}
	chCtx := newContext(rep)
	chCtx.Add(commands.VideoKey, services.StoredVideo{Name: "clip.mp4"})
	chCtx.Add(commands.ResultsKey, model.GetExampleResults())

	commands.NewHistoryPersist("persist", history).Execute(chCtx)

	require.False(t, chCtx.HasErrors())
	id := chCtx.Get(commands.AnalysisIDKey).(string)
	record, err := history.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", record.VideoName)
	assert.Equal(t, []float64{commands.ProgressDone}, rep.Percentages())
}
