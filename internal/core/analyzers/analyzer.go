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

// Package analyzers produces the result document of one capability for one
// video. The server selects an implementation with application.analyzer:
// "mock" returns canned payloads, "gemini" asks a Gemini model on Vertex AI.
package analyzers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/services"
)

// Request asks for one capability on one stored video.
type Request struct {
	Capability model.Capability
	Advanced   bool // use the higher cost variant
	Video      services.StoredVideo
}

// Analyzer runs a single capability. Implementations must be safe for
// concurrent use; the workflow calls them from a worker pool.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (json.RawMessage, error)
}

// Mock returns the example payload of every capability. Failures and
// Override let tests shape the outcome per capability.
type Mock struct {
	Delay    time.Duration
	Failures map[model.Capability]error
	Override map[model.Capability]json.RawMessage
}

// Analyze waits Delay, then returns the configured failure or override, or
// else the example result for the capability.
func (m *Mock) Analyze(ctx context.Context, req Request) (json.RawMessage, error) {
	if !req.Capability.Valid() {
		return nil, fmt.Errorf("unknown capability %d", int(req.Capability))
	}
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err, ok := m.Failures[req.Capability]; ok {
		return nil, err
	}
	if raw, ok := m.Override[req.Capability]; ok {
		return raw, nil
	}
	return json.Marshal(model.GetExample(req.Capability))
}

// CheckShape decodes raw as the canonical result type of c.
func CheckShape(c model.Capability, raw json.RawMessage) error {
	if !json.Valid(raw) {
		return fmt.Errorf("%s result is not valid JSON", c)
	}
	results := model.Results{c.ResultKey(): raw}
	var err error
	switch c {
	case model.Summary:
		_, err = results.Summary()
	case model.ObjectDetection:
		_, err = results.Objects()
	case model.Transcription:
		_, err = results.Transcription()
	case model.AudioAnalysis:
		_, err = results.Audio()
	case model.SymbolDetection:
		_, err = results.Symbols()
	case model.SceneDetection:
		_, err = results.Scenes()
	case model.PointOfInterest:
		_, err = results.POI()
	case model.EmotionRecognition:
		_, err = results.Emotions()
	}
	return err
}
