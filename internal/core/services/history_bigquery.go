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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	sq "github.com/Masterminds/squirrel"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/samber/lo"
	"google.golang.org/api/iterator"
)

// analysisRow is the BigQuery shape of an analysis. Results are stored as a
// JSON string so unknown result keys survive.
type analysisRow struct {
	ID        string    `bigquery:"id"`
	VideoName string    `bigquery:"video_name"`
	VideoID   string    `bigquery:"video_id"`
	VideoURI  string    `bigquery:"video_uri"`
	MIMEType  string    `bigquery:"mime_type"`
	Results   string    `bigquery:"results"`
	CreatedAt time.Time `bigquery:"created_at"`
}

// decisionRow is the BigQuery shape of a decision. Decisions are append only;
// the latest row per analysis wins.
type decisionRow struct {
	AnalysisID          string    `bigquery:"analysis_id"`
	ContentLabel        string    `bigquery:"content_label"`
	AdSuitability       int64     `bigquery:"ad_suitability"`
	CopyrightViolation  bool      `bigquery:"copyright_violation"`
	ProhibitedContent   bool      `bigquery:"prohibited_content"`
	RecommendationLevel string    `bigquery:"recommendation_level"`
	DecidedAt           time.Time `bigquery:"decided_at"`
}

func (r decisionRow) record() model.DecisionRecord {
	return model.DecisionRecord{
		AnalysisID: r.AnalysisID,
		Decision: model.AdminDecision{
			ContentLabel:        model.ContentLabel(r.ContentLabel),
			AdSuitability:       int(r.AdSuitability),
			CopyrightViolation:  r.CopyrightViolation,
			ProhibitedContent:   r.ProhibitedContent,
			RecommendationLevel: model.RecommendationLevel(r.RecommendationLevel),
		},
		DecidedAt: r.DecidedAt,
	}
}

// BigQueryHistoryStore keeps history in two BigQuery tables.
type BigQueryHistoryStore struct {
	Client        *bigquery.Client
	DatasetName   string
	AnalysisTable string
	DecisionTable string
}

func (s *BigQueryHistoryStore) fqn(table string) string {
	return strings.Replace(s.Client.Dataset(s.DatasetName).Table(table).FullyQualifiedName(), ":", ".", -1)
}

// Save streams the record into the analyses table.
func (s *BigQueryHistoryStore) Save(ctx context.Context, record *AnalysisRecord) error {
	results, err := json.Marshal(record.Results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	row := &analysisRow{
		ID:        record.ID,
		VideoName: record.VideoName,
		VideoID:   record.Video.ID,
		VideoURI:  record.Video.URI,
		MIMEType:  record.Video.MIMEType,
		Results:   string(results),
		CreatedAt: record.CreatedAt,
	}
	if err := s.Client.Dataset(s.DatasetName).Table(s.AnalysisTable).Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("bigquery insert failed for analysis %s: %w", record.ID, err)
	}
	return nil
}

// Get returns the analysis with its latest decision.
func (s *BigQueryHistoryStore) Get(ctx context.Context, id string) (*AnalysisRecord, error) {
	query := sq.Select("id", "video_name", "video_id", "video_uri", "mime_type", "results", "created_at").
		From(s.fqn(s.AnalysisTable)).
		Where(sq.Eq{"id": id}).
		Limit(1)
	rows, err := readRows[analysisRow](ctx, s.Client, query)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	records, err := s.withDecisions(ctx, rows)
	if err != nil {
		return nil, err
	}
	return records[0], nil
}

func (s *BigQueryHistoryStore) List(ctx context.Context, limit int) ([]*AnalysisRecord, error) {
	query := sq.Select("id", "video_name", "video_id", "video_uri", "mime_type", "results", "created_at").
		From(s.fqn(s.AnalysisTable)).
		OrderBy("created_at DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	rows, err := readRows[analysisRow](ctx, s.Client, query)
	if err != nil {
		return nil, err
	}
	return s.withDecisions(ctx, rows)
}

// withDecisions converts rows to records and attaches each one's latest decision.
func (s *BigQueryHistoryStore) withDecisions(ctx context.Context, rows []*analysisRow) ([]*AnalysisRecord, error) {
	out := make([]*AnalysisRecord, 0, len(rows))
	for _, row := range rows {
		var results model.Results
		if err := json.Unmarshal([]byte(row.Results), &results); err != nil {
			return nil, fmt.Errorf("analysis %s has malformed results: %w", row.ID, err)
		}
		out = append(out, &AnalysisRecord{
			ID:        row.ID,
			VideoName: row.VideoName,
			Video:     StoredVideo{ID: row.VideoID, Name: row.VideoName, URI: row.VideoURI, MIMEType: row.MIMEType},
			Results:   results,
			CreatedAt: row.CreatedAt,
		})
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := lo.Map(out, func(r *AnalysisRecord, _ int) string { return r.ID })
	query := sq.Select("analysis_id", "content_label", "ad_suitability", "copyright_violation",
		"prohibited_content", "recommendation_level", "decided_at").
		From(s.fqn(s.DecisionTable)).
		Where(sq.Eq{"analysis_id": ids}).
		OrderBy("decided_at ASC")
	decisions, err := readRows[decisionRow](ctx, s.Client, query)
	if err != nil {
		return nil, err
	}
	latest := make(map[string]model.DecisionRecord, len(decisions))
	for _, d := range decisions {
		latest[d.AnalysisID] = d.record()
	}
	for _, rec := range out {
		if d, ok := latest[rec.ID]; ok {
			rec.Decision = &d
		}
	}
	return out, nil
}

func (s *BigQueryHistoryStore) AttachDecision(ctx context.Context, decision model.DecisionRecord) error {
	if decision.AnalysisID != "" {
		if _, err := s.Get(ctx, decision.AnalysisID); err != nil {
			return err
		}
	}
	row := &decisionRow{
		AnalysisID:          decision.AnalysisID,
		ContentLabel:        string(decision.Decision.ContentLabel),
		AdSuitability:       int64(decision.Decision.AdSuitability),
		CopyrightViolation:  decision.Decision.CopyrightViolation,
		ProhibitedContent:   decision.Decision.ProhibitedContent,
		RecommendationLevel: string(decision.Decision.RecommendationLevel),
		DecidedAt:           decision.DecidedAt,
	}
	if err := s.Client.Dataset(s.DatasetName).Table(s.DecisionTable).Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("bigquery insert failed for decision on %q: %w", decision.AnalysisID, err)
	}
	return nil
}

type countRow struct {
	Key   string `bigquery:"k"`
	Count int64  `bigquery:"n"`
}

// Stats counts analyses, pending analyses and decisions per content label.
func (s *BigQueryHistoryStore) Stats(ctx context.Context) (model.Stats, error) {
	out := model.Stats{ByContentLabel: make(map[string]int)}

	analyses, err := readRows[countRow](ctx, s.Client,
		sq.Select("'analyses' AS k", "COUNT(*) AS n").From(s.fqn(s.AnalysisTable)))
	if err != nil {
		return out, err
	}
	decided, err := readRows[countRow](ctx, s.Client,
		sq.Select("'decided' AS k", "COUNT(DISTINCT analysis_id) AS n").
			From(s.fqn(s.DecisionTable)).
			Where(sq.NotEq{"analysis_id": ""}))
	if err != nil {
		return out, err
	}
	labels, err := readRows[countRow](ctx, s.Client,
		sq.Select("content_label AS k", "COUNT(*) AS n").
			From(s.fqn(s.DecisionTable)).
			GroupBy("content_label"))
	if err != nil {
		return out, err
	}

	if len(analyses) > 0 {
		out.Analyses = int(analyses[0].Count)
	}
	for _, l := range labels {
		out.ByContentLabel[l.Key] = int(l.Count)
		out.Decisions += int(l.Count)
	}
	if len(decided) > 0 {
		out.Pending = out.Analyses - int(decided[0].Count)
	}
	return out, nil
}

// readRows runs a squirrel query with positional parameters and decodes every row.
func readRows[T any](ctx context.Context, client *bigquery.Client, builder sq.Sqlizer) ([]*T, error) {
	text, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	q := client.Query(text)
	q.Parameters = lo.Map(args, func(a interface{}, _ int) bigquery.QueryParameter {
		return bigquery.QueryParameter{Value: a}
	})
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	out := make([]*T, 0)
	for {
		row := new(T)
		err := itr.Next(row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		out = append(out, row)
	}
	return out, nil
}
