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

// Package client talks to the moderation backend on behalf of the dashboard.
// Client.Analyze uploads a video with its settings and follows the analysis
// through the states
//
//	Idle -> Submitting -> Streaming | WaitingForResponse -> Completed | Failed
//
// publishing a Session snapshot after every change. The package also submits
// moderator decisions and reads history, frames and statistics.
package client

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
)

// State is the phase of an analysis.
type State int

const (
	Idle State = iota
	Submitting
	Streaming
	WaitingForResponse
	Completed
	Failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Streaming:
		return "streaming"
	case WaitingForResponse:
		return "waiting"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Transport selects how the analysis response is requested.
type Transport string

const (
	// TransportStream asks for newline delimited progress fragments.
	TransportStream Transport = "stream"
	// TransportBuffered asks for a single {"results"} document.
	TransportBuffered Transport = "buffered"
)

const ndjsonContentType = "application/x-ndjson"

// Session is a snapshot of the current analysis.
type Session struct {
	State      State
	Progress   float64  // 0 to 100, never decreases within one analysis
	Logs       []string // in arrival order
	Results    model.Results
	AnalysisID string
	Err        error
}

func (s Session) clone() Session {
	out := s
	out.Logs = append([]string(nil), s.Logs...)
	out.Results = s.Results.Clone()
	return out
}

// Client is safe for concurrent use; at most one analysis runs at a time.
type Client struct {
	baseURL    string
	http       *http.Client
	transport  Transport
	onUpdate   func(Session)
	onComplete func(Session)

	inFlight atomic.Bool
	mu       sync.Mutex
	session  Session
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout uses a fresh http.Client with the given overall request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

// WithTransport selects the streaming or buffered analysis response. Streaming
// is the default.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithUpdateHandler is called with a snapshot after every session change.
func WithUpdateHandler(f func(Session)) Option {
	return func(c *Client) { c.onUpdate = f }
}

// WithCompletionHandler is called once per successful analysis, after the
// in-flight guard is released.
func WithCompletionHandler(f func(Session)) Option {
	return func(c *Client) { c.onComplete = f }
}

// New returns a client for the moderation API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      http.DefaultClient,
		transport: TransportStream,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns a snapshot of the current session.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

// update applies f to the session and publishes the result.
func (c *Client) update(f func(*Session)) Session {
	c.mu.Lock()
	f(&c.session)
	snapshot := c.session.clone()
	c.mu.Unlock()
	if c.onUpdate != nil {
		c.onUpdate(snapshot)
	}
	return snapshot
}

func (c *Client) fail(err error) (Session, error) {
	s := c.update(func(s *Session) {
		s.State = Failed
		s.Err = err
		s.Logs = append(s.Logs, "Error: "+err.Error())
	})
	return s, err
}

func (c *Client) complete() (Session, error) {
	s := c.update(func(s *Session) {
		s.State = Completed
		s.Progress = 100
	})
	return s, nil
}

// Analyze uploads video and follows the analysis until it completes or
// fails. The returned session is also the last one published. The completion
// handler runs after the client is free again, so it may start the next
// analysis.
func (c *Client) Analyze(ctx context.Context, video *Video, settings model.AnalysisSettings, advanced model.AdvancedSettings) (Session, error) {
	if video == nil || video.Content == nil {
		return c.Session(), ErrNoVideo
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return c.Session(), ErrAnalysisInFlight
	}
	s, err := c.run(ctx, video, settings, advanced)
	c.inFlight.Store(false)

	if err == nil && c.onComplete != nil {
		c.onComplete(s)
	}
	return s, err
}

func (c *Client) run(ctx context.Context, video *Video, settings model.AnalysisSettings, advanced model.AdvancedSettings) (Session, error) {
	c.update(func(s *Session) { *s = Session{State: Submitting} })

	body, contentType, err := upload(video, settings, advanced)
	if err != nil {
		return c.fail(err)
	}
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/analyze-video"), body)
	if err != nil {
		return c.fail(err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.transport == TransportStream {
		req.Header.Set("Accept", ndjsonContentType+", application/json")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(newHTTPError(resp.StatusCode, resp.Body))
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == ndjsonContentType {
		c.update(func(s *Session) { s.State = Streaming })
		return c.readStream(ctx, resp.Body)
	}
	c.update(func(s *Session) { s.State = WaitingForResponse })
	return c.readBuffered(resp.Body)
}

func (c *Client) readBuffered(body io.Reader) (Session, error) {
	var out model.AnalyzeResponse
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return c.fail(fmt.Errorf("invalid analysis response: %w", err))
	}
	if out.Results == nil {
		return c.fail(errors.New("analysis response did not contain results"))
	}
	c.update(func(s *Session) {
		s.Results = out.Results
		s.AnalysisID = out.AnalysisID
	})
	return c.complete()
}

func (c *Client) readStream(ctx context.Context, body io.Reader) (Session, error) {
	reader := bufio.NewReader(body)
	for {
		line, err := reader.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			var ev model.StreamEvent
			if decodeErr := json.Unmarshal(line, &ev); decodeErr != nil {
				slog.WarnContext(ctx, "skipping malformed stream fragment", "fragment", string(line), "error", decodeErr)
			} else if ev.Error != "" {
				return c.fail(errors.New(ev.Error))
			} else {
				c.apply(ev)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return c.fail(fmt.Errorf("analysis stream interrupted: %w", err))
		}
	}

	if c.Session().Results == nil {
		return c.fail(errors.New("analysis stream ended without results"))
	}
	return c.complete()
}

// apply merges one fragment into the session.
func (c *Client) apply(ev model.StreamEvent) {
	c.update(func(s *Session) {
		if ev.Progress != nil {
			p := *ev.Progress
			if p > 100 {
				p = 100
			}
			if p > s.Progress {
				s.Progress = p
			}
		}
		if ev.Log != nil {
			s.Logs = append(s.Logs, *ev.Log)
		}
		if ev.Results != nil {
			s.Results = ev.Results
		}
		if ev.AnalysisID != "" {
			s.AnalysisID = ev.AnalysisID
		}
	})
}
