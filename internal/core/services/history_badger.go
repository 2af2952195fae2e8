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
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
)

const (
	analysisPrefix = "analysis:"
	decisionPrefix = "decision:"
)

// badgerAnalysis is the stored form of an AnalysisRecord.
type badgerAnalysis struct {
	ID        string                `json:"id"`
	VideoName string                `json:"videoName"`
	Video     StoredVideo           `json:"video"`
	Results   model.Results         `json:"results"`
	CreatedAt time.Time             `json:"createdAt"`
	Decision  *model.DecisionRecord `json:"decision,omitempty"`
}

func (a *badgerAnalysis) record() *AnalysisRecord {
	return &AnalysisRecord{
		ID:        a.ID,
		VideoName: a.VideoName,
		Video:     a.Video,
		Results:   a.Results,
		CreatedAt: a.CreatedAt,
		Decision:  a.Decision,
	}
}

// BadgerHistoryStore keeps history in an embedded Badger database so a single
// node survives restarts without any cloud dependency. Analyses live under
// "analysis:<id>"; every decision is also appended under
// "decision:<nanos>:<uuid>" for the stats.
type BadgerHistoryStore struct {
	db *badger.DB
}

// OpenBadgerHistoryStore opens (or creates) the database in dir. An empty dir
// opens an in-memory database.
func OpenBadgerHistoryStore(dir string) (*BadgerHistoryStore, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(badgerLogger{}).
		WithLoggingLevel(badger.WARNING)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %q: %w", dir, err)
	}
	return &BadgerHistoryStore{db: db}, nil
}

// Close flushes and closes the database.
func (s *BadgerHistoryStore) Close() error {
	return s.db.Close()
}

func analysisKey(id string) []byte {
	return []byte(analysisPrefix + id)
}

func putJSON(txn *badger.Txn, key []byte, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, raw)
}

func getAnalysis(txn *badger.Txn, id string) (*badgerAnalysis, error) {
	item, err := txn.Get(analysisKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := &badgerAnalysis{}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
	return out, err
}

// scan decodes every value under prefix.
func scan[T any](txn *badger.Txn, prefix string) ([]*T, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var out []*T
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		v := new(T)
		if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, v) }); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", it.Item().Key(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *BadgerHistoryStore) Save(_ context.Context, record *AnalysisRecord) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return putJSON(txn, analysisKey(record.ID), &badgerAnalysis{
			ID:        record.ID,
			VideoName: record.VideoName,
			Video:     record.Video,
			Results:   record.Results,
			CreatedAt: record.CreatedAt,
			Decision:  record.Decision,
		})
	})
}

func (s *BadgerHistoryStore) Get(_ context.Context, id string) (*AnalysisRecord, error) {
	var out *AnalysisRecord
	err := s.db.View(func(txn *badger.Txn) error {
		a, err := getAnalysis(txn, id)
		if err != nil {
			return err
		}
		out = a.record()
		return nil
	})
	return out, err
}

// List scans every analysis and returns up to limit, newest first.
func (s *BadgerHistoryStore) List(_ context.Context, limit int) ([]*AnalysisRecord, error) {
	var rows []*badgerAnalysis
	err := s.db.View(func(txn *badger.Txn) (err error) {
		rows, err = scan[badgerAnalysis](txn, analysisPrefix)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]*AnalysisRecord, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

// AttachDecision appends a decision entry and updates the analysis in one
// transaction.
func (s *BadgerHistoryStore) AttachDecision(_ context.Context, decision model.DecisionRecord) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if decision.AnalysisID != "" {
			a, err := getAnalysis(txn, decision.AnalysisID)
			if err != nil {
				return err
			}
			d := decision
			a.Decision = &d
			if err := putJSON(txn, analysisKey(a.ID), a); err != nil {
				return err
			}
		}
		key := fmt.Sprintf("%s%020d:%s", decisionPrefix, decision.DecidedAt.UnixNano(), uuid.NewString())
		return putJSON(txn, []byte(key), decision)
	})
}

func (s *BadgerHistoryStore) Stats(_ context.Context) (model.Stats, error) {
	out := model.Stats{ByContentLabel: make(map[string]int)}
	err := s.db.View(func(txn *badger.Txn) error {
		analyses, err := scan[badgerAnalysis](txn, analysisPrefix)
		if err != nil {
			return err
		}
		decisions, err := scan[model.DecisionRecord](txn, decisionPrefix)
		if err != nil {
			return err
		}
		out.Analyses = len(analyses)
		out.Decisions = len(decisions)
		for _, a := range analyses {
			if a.Decision == nil {
				out.Pending++
			}
		}
		for _, d := range decisions {
			out.ByContentLabel[string(d.Decision.ContentLabel)]++
		}
		return nil
	})
	return out, err
}

// badgerLogger routes Badger's own logging to slog.
type badgerLogger struct{}

func (badgerLogger) log(level slog.Level, format string, args ...interface{}) {
	slog.Log(context.Background(), level, strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l badgerLogger) Errorf(f string, a ...interface{})   { l.log(slog.LevelError, f, a...) }
func (l badgerLogger) Warningf(f string, a ...interface{}) { l.log(slog.LevelWarn, f, a...) }
func (l badgerLogger) Infof(f string, a ...interface{})    { l.log(slog.LevelInfo, f, a...) }
func (l badgerLogger) Debugf(f string, a ...interface{})   { l.log(slog.LevelDebug, f, a...) }
