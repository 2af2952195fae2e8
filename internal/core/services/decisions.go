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

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
)

// DecisionPublisher fans recorded decisions out to other systems.
type DecisionPublisher interface {
	Publish(ctx context.Context, v interface{}, attributes map[string]string) (string, error)
}

// DecisionService validates and records moderator decisions.
type DecisionService struct {
	History   HistoryStore
	Publisher DecisionPublisher // optional
	Now       func() time.Time
}

// Record validates the request, stores it and publishes it. A publish failure
// is logged but does not fail the request once the decision is stored.
func (s *DecisionService) Record(ctx context.Context, req model.DecisionRequest) (model.DecisionRecord, error) {
	if err := req.Validate(); err != nil {
		return model.DecisionRecord{}, err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	record := model.DecisionRecord{
		AnalysisID: req.AnalysisID,
		Decision:   req.AdminDecision,
		DecidedAt:  now().UTC(),
	}
	if err := s.History.AttachDecision(ctx, record); err != nil {
		return model.DecisionRecord{}, fmt.Errorf("failed to store decision: %w", err)
	}
	if s.Publisher != nil {
		attrs := map[string]string{
			"analysisId":   record.AnalysisID,
			"contentLabel": string(record.Decision.ContentLabel),
		}
		if id, err := s.Publisher.Publish(ctx, record, attrs); err != nil {
			slog.ErrorContext(ctx, "failed to publish decision", "analysisId", record.AnalysisID, "error", err)
		} else {
			slog.DebugContext(ctx, "published decision", "analysisId", record.AnalysisID, "messageId", id)
		}
	}
	return record, nil
}
