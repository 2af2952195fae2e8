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

package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
)

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(resp.StatusCode, resp.Body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// SubmitDecision sends the moderator's decision for analysisID and returns
// results with the decision merged in. The merge only happens once the server
// has accepted the decision; on error results is left untouched. When
// analysisID is the current session's analysis, the session is updated too.
func (c *Client) SubmitDecision(ctx context.Context, analysisID string, results model.Results, decision model.AdminDecision) (model.Results, error) {
	req := model.DecisionRequest{AnalysisID: analysisID, AdminDecision: decision}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/admin-decision"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to submit decision: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newHTTPError(resp.StatusCode, resp.Body)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	merged, err := results.WithAdminDecision(decision)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	current := analysisID != "" && c.session.AnalysisID == analysisID && c.session.Results != nil
	c.mu.Unlock()
	if current {
		c.update(func(s *Session) {
			if next, err := s.Results.WithAdminDecision(decision); err == nil {
				s.Results = next
			}
		})
	}
	return merged, nil
}

// FetchHistory lists stored analyses, newest first. Errors carry the
// messages shown by the history view.
func (c *Client) FetchHistory(ctx context.Context) ([]model.HistoryItem, error) {
	resp, err := c.get(ctx, "/api/get-analysis-history")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch analysis history: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, historyError(resp.StatusCode)
	}

	var envelope struct {
		History json.RawMessage `json:"history"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: MessageHistoryFormat}
	}
	trimmed := bytes.TrimSpace(envelope.History)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: MessageHistoryFormat}
	}
	var items []model.HistoryItem
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: MessageHistoryFormat}
	}
	return items, nil
}

// FindAnalysis returns the history entry with the given id.
func (c *Client) FindAnalysis(ctx context.Context, id string) (*model.HistoryItem, error) {
	items, err := c.FetchHistory(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, fmt.Errorf("analysis %s not found", id)
}

// FrameURL is the image URL of one frame of an analysed video.
func (c *Client) FrameURL(frame int, analysisID string) string {
	return c.url("/api/frame/"+strconv.Itoa(frame)) + "?analysis=" + url.QueryEscape(analysisID)
}

// FetchFrame downloads one frame as JPEG bytes.
func (c *Client) FetchFrame(ctx context.Context, frame int, analysisID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FrameURL(frame, analysisID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, newHTTPError(resp.StatusCode, resp.Body)
	}
	return io.ReadAll(resp.Body)
}

// StreamURL returns an absolute playback URL for an analysed video.
func (c *Client) StreamURL(ctx context.Context, analysisID string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.getJSON(ctx, "/api/video/"+url.PathEscape(analysisID)+"/stream", &out); err != nil {
		return "", err
	}
	if strings.HasPrefix(out.URL, "/") {
		return c.url(out.URL), nil
	}
	return out.URL, nil
}

// Stats returns analysis and decision totals.
func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	var out model.Stats
	err := c.getJSON(ctx, "/api/stats", &out)
	return out, err
}
