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

// Package model defines the data structures shared by the moderation server,
// the analysis client and the terminal renderers. This file holds the fixed
// registry of analysis capabilities.
//
// A capability is one named analysis category. It is addressed by two keys:
// the settings key used in AnalysisSettings/AdvancedSettings (for example
// "object_detection") and the result key under which the backend places its
// output in Results (for example "objects").
package model

import "fmt"

// Capability identifies one analysis category. The zero value is Summary.
type Capability int

const (
	Summary Capability = iota
	ObjectDetection
	Transcription
	AudioAnalysis
	SymbolDetection
	SceneDetection
	PointOfInterest
	EmotionRecognition
)

// capabilityCount is the number of known capabilities.
const capabilityCount = int(EmotionRecognition) + 1

type capabilityInfo struct {
	settingsKey string // key in the settings maps
	resultKey   string // key in the results document
	title       string // display title
}

var capabilities = [capabilityCount]capabilityInfo{
	Summary:            {"summary", "summary", "Summary"},
	ObjectDetection:    {"object_detection", "objects", "Objects"},
	Transcription:      {"transcription", "transcription", "Transcription"},
	AudioAnalysis:      {"audio_analysis", "audio", "Audio"},
	SymbolDetection:    {"symbol_detection", "symbols", "Symbols"},
	SceneDetection:     {"scene_detection", "scenes", "Scenes"},
	PointOfInterest:    {"point_of_interest", "poi", "Points of Interest"},
	EmotionRecognition: {"emotion_recognition", "emotions", "Emotions"},
}

// AllCapabilities returns every capability in canonical order.
func AllCapabilities() []Capability {
	out := make([]Capability, capabilityCount)
	for i := range out {
		out[i] = Capability(i)
	}
	return out
}

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	return c >= 0 && int(c) < capabilityCount
}

// String returns the settings key of the capability.
func (c Capability) String() string {
	if !c.Valid() {
		return fmt.Sprintf("capability(%d)", int(c))
	}
	return capabilities[c].settingsKey
}

// ResultKey returns the key under which the capability's output is stored in Results.
func (c Capability) ResultKey() string {
	if !c.Valid() {
		return ""
	}
	return capabilities[c].resultKey
}

// Title returns a human readable name for the capability.
func (c Capability) Title() string {
	if !c.Valid() {
		return c.String()
	}
	return capabilities[c].title
}

// ParseCapability resolves either a settings key or a result key to a Capability.
func ParseCapability(name string) (Capability, error) {
	for i, info := range capabilities {
		if info.settingsKey == name || info.resultKey == name {
			return Capability(i), nil
		}
	}
	return 0, fmt.Errorf("unknown capability: %q", name)
}

// CapabilityForResultKey resolves a result key only.
func CapabilityForResultKey(key string) (Capability, bool) {
	for i, info := range capabilities {
		if info.resultKey == key {
			return Capability(i), true
		}
	}
	return 0, false
}
