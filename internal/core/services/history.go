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

// Package services holds the server side stores behind the HTTP API: analysis
// history (with the moderator decisions attached to it), uploaded video
// storage and frame extraction.
package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/samber/lo"
)

// ErrNotFound is returned when an analysis id is unknown.
var ErrNotFound = errors.New("analysis not found")

// AnalysisRecord is one stored analysis.
type AnalysisRecord struct {
	ID        string
	VideoName string
	Video     StoredVideo
	Results   model.Results
	CreatedAt time.Time
	Decision  *model.DecisionRecord // latest decision, nil when undecided
}

// Item renders the record as a history entry, with the latest decision
// merged into the analysis document.
func (r *AnalysisRecord) Item() model.HistoryItem {
	analysis := r.Results.Clone()
	if analysis == nil {
		analysis = model.Results{}
	}
	if r.Decision != nil {
		if merged, err := analysis.WithAdminDecision(r.Decision.Decision); err == nil {
			analysis = merged
		} else {
			slog.Warn("failed to merge decision into history item", "id", r.ID, "error", err)
		}
	}
	return model.HistoryItem{ID: r.ID, VideoName: r.VideoName, Analysis: analysis, CreatedAt: r.CreatedAt}
}

// HistoryStore persists analyses and the decisions taken on them.
type HistoryStore interface {
	Save(ctx context.Context, record *AnalysisRecord) error
	Get(ctx context.Context, id string) (*AnalysisRecord, error)
	// List returns at most limit records, newest first.
	List(ctx context.Context, limit int) ([]*AnalysisRecord, error)
	// AttachDecision records a decision. An empty id stores a decision that is
	// not tied to any analysis; an unknown id returns ErrNotFound.
	AttachDecision(ctx context.Context, decision model.DecisionRecord) error
	Stats(ctx context.Context) (model.Stats, error)
}

// MemoryHistoryStore keeps history in process memory.
type MemoryHistoryStore struct {
	mu        sync.RWMutex
	records   map[string]*AnalysisRecord
	decisions []model.DecisionRecord
}

// NewMemoryHistoryStore returns an empty store.
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{records: make(map[string]*AnalysisRecord)}
}

func (s *MemoryHistoryStore) Save(_ context.Context, record *AnalysisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *record
	stored.Results = record.Results.Clone()
	s.records[record.ID] = &stored
	return nil
}

func (s *MemoryHistoryStore) Get(_ context.Context, id string) (*AnalysisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

// List returns up to limit records, newest first.
func (s *MemoryHistoryStore) List(_ context.Context, limit int) ([]*AnalysisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*AnalysisRecord, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AttachDecision records decision on its analysis; ErrNotFound when the
// analysis is unknown.
func (s *MemoryHistoryStore) AttachDecision(_ context.Context, decision model.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if decision.AnalysisID != "" {
		rec, ok := s.records[decision.AnalysisID]
		if !ok {
			return ErrNotFound
		}
		d := decision
		rec.Decision = &d
	}
	s.decisions = append(s.decisions, decision)
	return nil
}

func (s *MemoryHistoryStore) Stats(_ context.Context) (model.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := model.Stats{
		Analyses:       len(s.records),
		Decisions:      len(s.decisions),
		ByContentLabel: make(map[string]int),
	}
	for _, d := range s.decisions {
		out.ByContentLabel[string(d.Decision.ContentLabel)]++
	}
	out.Pending = len(lo.PickBy(s.records, func(_ string, r *AnalysisRecord) bool { return r.Decision == nil }))
	return out, nil
}
