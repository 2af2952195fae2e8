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

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// AdminDecisionKey is the result key under which a moderator decision is merged.
const AdminDecisionKey = "adminDecision"

// Results is the analysis document returned by the backend. Each key holds the
// raw JSON produced for one capability so that a payload passes through the
// client untouched; typed accessors decode a key on demand. A missing key means
// the capability was not requested or has not finished yet.
type Results map[string]json.RawMessage

// Has reports whether key is present and not JSON null.
func (r Results) Has(key string) bool {
	raw, ok := r[key]
	return ok && !isNull(raw)
}

// Keys returns the result keys in lexical order.
func (r Results) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy.
func (r Results) Clone() Results {
	if r == nil {
		return nil
	}
	out := make(Results, len(r))
	for k, v := range r {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Set encodes v under key.
func (r Results) Set(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode result %s: %w", key, err)
	}
	r[key] = raw
	return nil
}

// Merge returns a copy of r with every key of other laid over it.
func (r Results) Merge(other Results) Results {
	out := r.Clone()
	if out == nil {
		out = make(Results, len(other))
	}
	for k, v := range other {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Equal compares two documents key by key after compacting whitespace.
func (r Results) Equal(other Results) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		w, ok := other[k]
		if !ok {
			return false
		}
		var a, b bytes.Buffer
		if json.Compact(&a, v) != nil || json.Compact(&b, w) != nil {
			return false
		}
		if !bytes.Equal(a.Bytes(), b.Bytes()) {
			return false
		}
	}
	return true
}

// Decode unmarshals key into out. It returns false when the key is absent.
func (r Results) Decode(key string, out interface{}) (bool, error) {
	if !r.Has(key) {
		return false, nil
	}
	if err := json.Unmarshal(r[key], out); err != nil {
		return true, fmt.Errorf("malformed %s result: %w", key, err)
	}
	return true, nil
}

func decodeResult[T any](r Results, key string) (*T, error) {
	if !r.Has(key) {
		return nil, nil
	}
	out, err := decodeInto[T](r[key])
	if err != nil {
		return nil, fmt.Errorf("malformed %s result: %w", key, err)
	}
	return out, nil
}

// Summary decodes the summary result; nil when absent.
func (r Results) Summary() (*SummaryResult, error) {
	return decodeResult[SummaryResult](r, Summary.ResultKey())
}

// Transcription decodes the transcription result; nil when absent.
func (r Results) Transcription() (*TranscriptionResult, error) {
	return decodeResult[TranscriptionResult](r, Transcription.ResultKey())
}

// Audio decodes the audio result; nil when absent.
func (r Results) Audio() (*AudioResult, error) {
	return decodeResult[AudioResult](r, AudioAnalysis.ResultKey())
}

// Symbols decodes the symbol detection result; nil when absent.
func (r Results) Symbols() (*SymbolsResult, error) {
	return decodeResult[SymbolsResult](r, SymbolDetection.ResultKey())
}

// Objects decodes the object detection result; nil when absent.
func (r Results) Objects() (*ObjectsResult, error) {
	return decodeResult[ObjectsResult](r, ObjectDetection.ResultKey())
}

// POI decodes the points of interest result; nil when absent.
func (r Results) POI() (*POIResult, error) {
	return decodeResult[POIResult](r, PointOfInterest.ResultKey())
}

// Scenes decodes the scene detection result; nil when absent.
func (r Results) Scenes() (*ScenesResult, error) {
	return decodeResult[ScenesResult](r, SceneDetection.ResultKey())
}

// Emotions returns the per-emotion scores; nil when the key is absent.
func (r Results) Emotions() ([]EmotionScore, error) {
	out, err := decodeResult[[]EmotionScore](r, EmotionRecognition.ResultKey())
	if out == nil || err != nil {
		return nil, err
	}
	return *out, nil
}

// AdminDecision returns the decision merged into the document, if any.
func (r Results) AdminDecision() (*AdminDecision, error) {
	return decodeResult[AdminDecision](r, AdminDecisionKey)
}

// WithAdminDecision returns a copy of r whose adminDecision key is replaced by
// d. Every other key is carried over byte for byte.
func (r Results) WithAdminDecision(d AdminDecision) (Results, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode admin decision: %w", err)
	}
	out := r.Clone()
	if out == nil {
		out = make(Results, 1)
	}
	out[AdminDecisionKey] = raw
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
