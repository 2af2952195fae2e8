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

// This file provides hardcoded example results for every capability. They
// serve as the few-shot JSON examples embedded in Gemini prompts and as the
// canned output of the mock analyzer.
package model

import "github.com/samber/lo"

var exampleLabels = []string{"Highlights", "Base", "18+", "Gray", "Black"}

func labels() []string {
	return append([]string(nil), exampleLabels...)
}

// GetExampleSummary returns a sample overall summary.
func GetExampleSummary() *SummaryResult {
	return &SummaryResult{
		Duration:    "6:30",
		OverallTone: "Positive",
		RiskLevel:   "Medium",
		KeyMoments: map[string]string{
			"transcription": "3 key events",
			"audio":         "3 notable sound effects",
			"symbols":       "3 detected symbols",
			"objects":       "3 key objects",
			"poi":           "3 heat zones",
			"scenes":        "3 main scene types",
		},
		Labels: labels(),
	}
}

// GetExampleTranscription returns a sample transcript with its analysis block.
func GetExampleTranscription() *TranscriptionResult {
	out := &TranscriptionResult{
		Transcription: "Welcome back to the channel. Today we are looking at the new release...",
	}
	a := &out.Analysis
	a.GenerationStatus = &GenerationStatus{Success: true, Model: "gemini"}
	a.Languages = []Language{{Name: "English", Primary: true}, {Name: "Spanish", Primary: false}}
	a.LipSyncAccuracy = lo.ToPtr(95.0)
	a.SubtitlesStatus = &SubtitlesStatus{Created: true, Synchronized: true}
	a.KeyEvents = []Detection{
		{Time: "00:15", Description: "Sudden loud noise", Type: "Moderation"},
		{Time: "01:30", Description: "Mention of a controlled substance", Type: "18+"},
		{Time: "02:45", Description: "Unexpected joke", Type: "Viral"},
		{Time: "03:45", Description: "Natural break suitable for an ad", Type: "Advertising"},
	}
	a.SentimentAnalysis = []SentimentPoint{
		{Time: "00:00 - 01:30", Value: 0.2},
		{Time: "01:31 - 03:00", Value: 0.8},
		{Time: "03:01 - 06:30", Value: 0.9},
	}
	a.OverallSentiment.Tone = "Positive"
	a.OverallSentiment.Value = 0.7
	a.KeywordAnalysis = []Keyword{
		{Word: "cryptocurrency", Count: 5, Type: "Slang"},
		{Word: "inteligencia artificial", Count: 3, Type: "Foreign words"},
		{Word: "blockchain", Count: 2, Type: "Slang"},
	}
	a.TextLabels = labels()
	return out
}

// GetExampleAudio returns a sample audio analysis.
func GetExampleAudio() *AudioResult {
	return &AudioResult{
		KeyEvents: []Detection{
			{Time: "00:30", Description: "Crowd cheering"},
			{Time: "02:15", Description: "Gunshot"},
			{Time: "04:00", Description: "Siren"},
		},
		SoundEffects:  []string{"Gunshot", "Explosion", "Siren"},
		MusicPatterns: []string{"Rock", "Classical", "Electronic"},
		AudioFeatures: map[string]float64{
			"tempo":         120,
			"pitch_mean":    220.5,
			"loudness":      -14.2,
			"mel_spec_mean": 0.31,
			"chroma_mean":   0.44,
		},
		EmotionAnalysis: []EmotionScore{{Emotion: "Excitement", Score: 0.8}, {Emotion: "Calm", Score: 0.2}},
		BackgroundNoise: map[string]float64{"traffic": 0.1, "wind": 0.05},
		Labels:          labels(),
	}
}

// GetExampleSymbols returns a sample symbol detection result.
func GetExampleSymbols() *SymbolsResult {
	return &SymbolsResult{
		DetectedSymbols: []Detection{
			{Time: "00:45", Description: "Corporate logo on a t-shirt", Symbol: "logo", Confidence: 0.91},
			{Time: "02:30", Description: "Peace sign painted on a wall", Symbol: "peace", Confidence: 0.84},
			{Time: "03:15", Description: "Flag in the background", Symbol: "flag", Confidence: 0.77},
		},
		RiskAnalysis: RiskAnalysis{
			OverallRisk: lo.ToPtr(0.5),
			RiskLevel:   "Medium",
			RiskLabel:   "Potentially harmful",
		},
		SymbolOccurrences: map[string]int{"logo": 4, "peace": 1, "flag": 2},
		SymbolCategories:  []string{"Brands", "Political", "Cultural"},
		Labels:            labels(),
	}
}

// GetExampleObjects returns a sample object detection result.
func GetExampleObjects() *ObjectsResult {
	return &ObjectsResult{
		ObjectCategories: []string{"People", "Items", "Nature", "Vehicles"},
		KeyObjects: []Detection{
			{Time: "01:00", Description: "Person holding a phone"},
			{Time: "03:45", Description: "Red car"},
			{Time: "05:30", Description: "Dog"},
		},
		ObjectOccurrences: map[string]int{"person": 12, "car": 3, "dog": 1},
		ObjectInteractions: []Detection{
			{Time: "03:50", Description: "Person opens the car door"},
		},
		Labels: labels(),
	}
}

// GetExamplePOI returns a sample points of interest result.
func GetExamplePOI() *POIResult {
	out := &POIResult{
		HeatZones: []HeatZone{
			{ID: 1, Time: "00:30 - 00:45", Description: "Facial expression", Intensity: 0.9, Size: 5000},
			{ID: 2, Time: "02:15 - 02:30", Description: "Moving object", Intensity: 0.6, Size: 3000},
			{ID: 3, Time: "04:00 - 04:15", Description: "On-screen text", Intensity: 0.4, Size: 2000},
		},
		HeatZoneCoordinates: []HeatZoneCoordinate{
			{ID: 1, X: 100, Y: 200, Area: 5000},
			{ID: 2, X: 300, Y: 150, Area: 3000},
			{ID: 3, X: 500, Y: 400, Area: 2000},
		},
		AttentionHotspots: []Hotspot{
			{ID: 1, X: 120, Y: 210, Intensity: 0.8},
		},
		EyeTrackingData: []EyeTrackingSample{
			{ID: 1, X: 110, Y: 205, Timestamp: 31.5, Duration: 0.4},
		},
		Labels: labels(),
	}
	out.Analysis.HeatZonesAnalysis = "Attention concentrates on the presenter's face."
	out.Analysis.Hotspots = "One persistent hotspot in the upper left quadrant."
	return out
}

// GetExampleScenes returns a sample scene detection result.
func GetExampleScenes() *ScenesResult {
	return &ScenesResult{
		SceneCount:           lo.ToPtr(3),
		AverageSceneDuration: lo.ToPtr(90.0),
		SceneTypes:           []string{"Action", "Dialogue", "Landscape", "Montage"},
		SceneTransitions: []SceneTransition{
			{From: "Action", To: "Dialogue", Time: "01:30"},
			{From: "Dialogue", To: "Landscape", Time: "03:00"},
		},
		DominantColors:    []Color{{R: 200, G: 40, B: 40}, {R: 30, G: 90, B: 160}},
		SceneDescriptions: []string{"Car chase through the city", "Two people talking in a cafe", "Sunset over the hills"},
		KeyScenes: []KeyScene{
			{Time: "00:00 - 01:30", Type: "Action", Complexity: 0.8, MotionIntensity: 0.9, Mood: "Tense"},
			{Time: "01:31 - 03:00", Type: "Dialogue", Complexity: 0.3, MotionIntensity: 0.1, Mood: "Calm"},
			{Time: "03:01 - 04:30", Type: "Landscape", Complexity: 0.2, MotionIntensity: 0.2, Mood: "Peaceful"},
		},
		SimilarityMatrix: [][]float64{{1, 0.2, 0.1}, {0.2, 1, 0.4}, {0.1, 0.4, 1}},
		Labels:           labels(),
	}
}

// GetExampleEmotions returns sample emotion scores.
func GetExampleEmotions() []EmotionScore {
	return []EmotionScore{
		{Emotion: "Joy", Score: 0.62},
		{Emotion: "Surprise", Score: 0.21},
		{Emotion: "Anger", Score: 0.05},
	}
}

// GetExample returns the example result for a capability.
func GetExample(c Capability) interface{} {
	switch c {
	case Summary:
		return GetExampleSummary()
	case ObjectDetection:
		return GetExampleObjects()
	case Transcription:
		return GetExampleTranscription()
	case AudioAnalysis:
		return GetExampleAudio()
	case SymbolDetection:
		return GetExampleSymbols()
	case SceneDetection:
		return GetExampleScenes()
	case PointOfInterest:
		return GetExamplePOI()
	case EmotionRecognition:
		return GetExampleEmotions()
	}
	return nil
}

// GetExampleResults returns a full document with every capability populated.
func GetExampleResults() Results {
	out := make(Results, capabilityCount)
	for _, c := range AllCapabilities() {
		_ = out.Set(c.ResultKey(), GetExample(c))
	}
	return out
}
