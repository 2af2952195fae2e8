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

package model

import "time"

// HistoryItem is one stored analysis as listed by GET /api/get-analysis-history.
// Analysis carries the latest admin decision under AdminDecisionKey.
type HistoryItem struct {
	ID        string    `json:"id" bigquery:"id"`
	VideoName string    `json:"video_name" bigquery:"video_name"`
	Analysis  Results   `json:"analysis" bigquery:"-"`
	CreatedAt time.Time `json:"created_at" bigquery:"created_at"`
}

// HistoryResponse is the body of the history endpoint.
type HistoryResponse struct {
	History []HistoryItem `json:"history"`
}

// AnalyzeResponse is the buffered body of POST /api/analyze-video.
type AnalyzeResponse struct {
	Results    Results `json:"results"`
	AnalysisID string  `json:"analysisId,omitempty"`
}

// StreamEvent is one newline delimited fragment of a streamed analysis. Every
// field is optional.
type StreamEvent struct {
	Progress   *float64 `json:"progress,omitempty"`
	Log        *string  `json:"log,omitempty"`
	Results    Results  `json:"results,omitempty"`
	AnalysisID string   `json:"analysisId,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// ProgressEvent builds a fragment carrying only a progress value.
func ProgressEvent(p float64) StreamEvent {
	return StreamEvent{Progress: &p}
}

// LogEvent builds a fragment carrying only a log line.
func LogEvent(line string) StreamEvent {
	return StreamEvent{Log: &line}
}

// ErrorResponse is the JSON body of any failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DecisionRecord is a decision as stored, with the time it was recorded.
type DecisionRecord struct {
	AnalysisID string        `json:"analysisId"`
	Decision   AdminDecision `json:"decision"`
	DecidedAt  time.Time     `json:"decidedAt"`
}

// Stats summarises stored analyses and decisions for GET /api/stats.
type Stats struct {
	Analyses       int            `json:"analyses"`
	Decisions      int            `json:"decisions"`
	ByContentLabel map[string]int `json:"byContentLabel"`
	Pending        int            `json:"pending"` // analyses without a decision
}
