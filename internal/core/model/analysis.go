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
	"encoding/json"
	"strconv"
	"strings"
)

// Detection is a timestamped finding. Symbol and Confidence are only set by
// detectors that name what they found.
type Detection struct {
	Time        string  `json:"time"`                 // Timestamp or range, e.g. "00:45" or "00:30 - 00:45".
	Description string  `json:"description"`          // Free text description.
	Type        string  `json:"type,omitempty"`       // Category of the event, e.g. "18+".
	Symbol      string  `json:"symbol,omitempty"`     // Detected symbol name.
	Confidence  float64 `json:"confidence,omitempty"` // Detector confidence 0..1.
}

// SummaryResult is the overall digest of the video.
type SummaryResult struct {
	Duration    string            `json:"duration"`
	OverallTone string            `json:"overallTone"`
	RiskLevel   string            `json:"riskLevel"`
	KeyMoments  map[string]string `json:"keyMoments,omitempty"` // Result key -> short highlight.
	Labels      []string          `json:"labels,omitempty"`
}

// Language is a spoken language found in the transcript.
type Language struct {
	Name    string `json:"name"`
	Primary bool   `json:"primary"`
}

// Keyword is a notable word and how often it occurs.
type Keyword struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
	Type  string `json:"type"`
}

// SentimentPoint is the sentiment over one time range.
type SentimentPoint struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

// TranscriptionDetails is the analysis block that accompanies the transcript.
// Optional blocks are pointers so that an absent block is distinguishable from
// a zero one.
type TranscriptionDetails struct {
	GenerationStatus  *GenerationStatus `json:"generationStatus,omitempty"`
	Languages         []Language        `json:"languages,omitempty"`
	LipSyncAccuracy   *float64          `json:"lipSyncAccuracy,omitempty"` // Percent, 0..100.
	SubtitlesStatus   *SubtitlesStatus  `json:"subtitlesStatus,omitempty"`
	KeyEvents         []Detection       `json:"keyEvents,omitempty"`
	SentimentAnalysis []SentimentPoint  `json:"sentimentAnalysis,omitempty"`
	OverallSentiment  struct {
		Tone  string  `json:"tone"`
		Value float64 `json:"value"`
	} `json:"overallSentiment"`
	KeywordAnalysis []Keyword `json:"keywordAnalysis,omitempty"`
	TextLabels      []string  `json:"textLabels,omitempty"`
}

// GenerationStatus reports whether the transcript was produced, and by which model.
type GenerationStatus struct {
	Success bool   `json:"success"`
	Model   string `json:"model"`
}

// SubtitlesStatus reports subtitle generation.
type SubtitlesStatus struct {
	Created      bool `json:"created"`
	Synchronized bool `json:"synchronized"`
}

// TranscriptionResult is the transcript plus its analysis block.
type TranscriptionResult struct {
	Transcription string               `json:"transcription"`
	Analysis      TranscriptionDetails `json:"analysis"`
}

// Score is an emotion score. Backends send it either as a number or as a
// numeric string; both decode to the same value.
type Score float64

// UnmarshalJSON accepts 0.8, "0.8" and null.
func (s *Score) UnmarshalJSON(data []byte) error {
	text := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if text == "" || text == "null" {
		*s = 0
		return nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return err
	}
	*s = Score(v)
	return nil
}

// EmotionScore is one entry of the emotion recognition result. The keys are
// capitalised on the wire.
type EmotionScore struct {
	Emotion string `json:"Emotion"`
	Score   Score  `json:"Score"`
}

// AudioResult is the audio analysis result.
type AudioResult struct {
	KeyEvents       []Detection        `json:"keyEvents,omitempty"`
	Timeline        []string           `json:"timeline,omitempty"`
	SoundEffects    []string           `json:"soundEffects,omitempty"`
	MusicPatterns   []string           `json:"musicPatterns,omitempty"`
	AudioFeatures   map[string]float64 `json:"audioFeatures,omitempty"` // tempo, pitch_mean, loudness, ...
	EmotionAnalysis []EmotionScore     `json:"emotionAnalysis,omitempty"`
	BackgroundNoise map[string]float64 `json:"backgroundNoise,omitempty"`
	Transcription   string             `json:"transcription,omitempty"`
	Labels          []string           `json:"labels,omitempty"`
}

// RiskAnalysis is the overall symbol risk.
type RiskAnalysis struct {
	OverallRisk *float64 `json:"overallRisk,omitempty"` // 0..1.
	RiskLevel   string   `json:"riskLevel"`
	RiskLabel   string   `json:"riskLabel"`
}

// SymbolsResult is the symbol detection result.
type SymbolsResult struct {
	DetectedSymbols   []Detection    `json:"detectedSymbols,omitempty"`
	RiskAnalysis      RiskAnalysis   `json:"riskAnalysis"`
	SymbolOccurrences map[string]int `json:"symbolOccurrences,omitempty"`
	SymbolCategories  []string       `json:"symbolCategories,omitempty"`
	Labels            []string       `json:"labels,omitempty"`
}

// ObjectsResult is the object detection result.
type ObjectsResult struct {
	ObjectCategories   []string       `json:"objectCategories,omitempty"`
	KeyObjects         []Detection    `json:"keyObjects,omitempty"`
	ObjectOccurrences  map[string]int `json:"objectOccurrences,omitempty"`
	ObjectInteractions []Detection    `json:"objectInteractions,omitempty"`
	Labels             []string       `json:"labels,omitempty"`
}

// HeatZone is an area of the frame that draws attention.
type HeatZone struct {
	ID          int     `json:"id,omitempty"`
	Time        string  `json:"time,omitempty"`
	Description string  `json:"description,omitempty"`
	Intensity   float64 `json:"intensity,omitempty"`
	Size        float64 `json:"size,omitempty"`
}

// HeatZoneCoordinate locates a heat zone in normalised frame coordinates.
type HeatZoneCoordinate struct {
	ID     int     `json:"id,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Area   float64 `json:"area,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Hotspot is a point of attention at a moment in the video.
type Hotspot struct {
	ID          int     `json:"id,omitempty"`
	Time        string  `json:"time,omitempty"`
	Description string  `json:"description,omitempty"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
	Intensity   float64 `json:"intensity,omitempty"`
}

// EyeTrackingSample is one predicted gaze position.
type EyeTrackingSample struct {
	ID        int     `json:"id,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp float64 `json:"timestamp"`
	Duration  float64 `json:"duration,omitempty"`
}

// POIResult carries the points of interest (heat zones and eye tracking) found in the video.
type POIResult struct {
	Analysis struct {
		HeatZonesAnalysis   string `json:"heatZonesAnalysis,omitempty"`
		HeatZoneCoordinates string `json:"heatZoneCoordinates,omitempty"`
		Hotspots            string `json:"hotspots,omitempty"`
		POILabeling         string `json:"poiLabeling,omitempty"`
	} `json:"analysis"`
	HeatZones           []HeatZone           `json:"heatZones,omitempty"`
	HeatZoneCoordinates []HeatZoneCoordinate `json:"heatZoneCoordinates,omitempty"`
	AttentionHotspots   []Hotspot            `json:"attentionHotspots,omitempty"`
	EyeTrackingData     []EyeTrackingSample  `json:"eyeTrackingData,omitempty"`
	Labels              []string             `json:"labels,omitempty"`
}

// SceneTransition is a cut between scene types.
type SceneTransition struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	Time string `json:"time"`
}

// Color is an RGB color; components are nominally 0..255.
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// KeyScene describes a significant scene.
type KeyScene struct {
	Time            string  `json:"time"`
	Type            string  `json:"type"`
	Complexity      float64 `json:"complexity,omitempty"`
	MotionIntensity float64 `json:"motionIntensity,omitempty"`
	Mood            string  `json:"mood,omitempty"`
	Text            string  `json:"text,omitempty"`
}

// ScenesResult is the scene detection result.
type ScenesResult struct {
	SceneCount           *int              `json:"sceneCount,omitempty"`
	AverageSceneDuration *float64          `json:"averageSceneDuration,omitempty"` // Seconds.
	SceneTypes           []string          `json:"sceneTypes,omitempty"`
	SceneTransitions     []SceneTransition `json:"sceneTransitions,omitempty"`
	DominantColors       []Color           `json:"dominantColors,omitempty"`
	SceneDescriptions    []string          `json:"sceneDescriptions,omitempty"`
	KeyScenes            []KeyScene        `json:"keyScenes,omitempty"`
	SimilarityMatrix     [][]float64       `json:"similarityMatrix,omitempty"`
	Labels               []string          `json:"labels,omitempty"`
}

// decodeInto unmarshals raw into a fresh T.
func decodeInto[T any](raw json.RawMessage) (*T, error) {
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}
