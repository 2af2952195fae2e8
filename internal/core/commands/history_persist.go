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

package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/services"
)

// HistoryPersist records the finished analysis in the history store and puts
// the new analysis id on the context.
type HistoryPersist struct {
	cor.BaseCommand
	history services.HistoryStore
	now     func() time.Time
}

// NewHistoryPersist saves finished analyses to history.
func NewHistoryPersist(name string, history services.HistoryStore) *HistoryPersist {
	out := &HistoryPersist{BaseCommand: *cor.NewBaseCommand(name), history: history, now: time.Now}
	out.InputParamName = ResultsKey
	return out
}

// IsExecutable requires results and the stored video.
func (h *HistoryPersist) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.GetContext() != nil &&
		context.Get(ResultsKey) != nil &&
		context.Get(VideoKey) != nil
}

func (h *HistoryPersist) Execute(context cor.Context) {
	ctx := context.GetContext()
	results := context.Get(ResultsKey).(model.Results)
	video := context.Get(VideoKey).(services.StoredVideo)

	record := &services.AnalysisRecord{
		ID:        uuid.NewString(),
		VideoName: video.Name,
		Video:     video,
		Results:   results,
		CreatedAt: h.now().UTC(),
	}
	if err := h.history.Save(ctx, record); err != nil {
		h.GetErrorCounter().Add(ctx, 1)
		context.AddError(h.GetName(), fmt.Errorf("failed to save analysis of %s: %w", video.Name, err))
		return
	}

	slog.InfoContext(ctx, "analysis saved", "id", record.ID, "video", video.Name, "results", results.Keys())
	h.GetSuccessCounter().Add(ctx, 1)
	context.GetReporter().Progress(ctx, ProgressDone)
	context.Add(AnalysisIDKey, record.ID)
	context.Add(h.GetOutputParam(), record.ID)
}
