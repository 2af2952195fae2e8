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

package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/samber/lo"
)

// Summary renders the overall digest, with key moments in capability order.
func Summary(r *model.SummaryResult) View {
	title := model.Summary.Title()
	if r == nil {
		return Placeholder(title)
	}
	v := View{Title: title}
	v.lines("Overview",
		field("Duration", r.Duration),
		field("Overall tone", r.OverallTone),
		field("Risk level", r.RiskLevel))
	keys := lo.Keys(r.KeyMoments)
	sort.Slice(keys, func(i, j int) bool { return resultOrder(keys[i]) < resultOrder(keys[j]) })
	v.table("Key moments", []string{"Analysis", "Highlight"}, lo.Map(keys, func(k string, _ int) []string {
		name := k
		if c, ok := model.CapabilityForResultKey(k); ok {
			name = c.Title()
		}
		return []string{name, r.KeyMoments[k]}
	}))
	v.labels(r.Labels)
	return v.placeholderIfEmpty()
}

func resultOrder(key string) int {
	if c, ok := model.CapabilityForResultKey(key); ok {
		return int(c)
	}
	return len(model.AllCapabilities())
}

func field(name, value string) string {
	if value == "" {
		return ""
	}
	return name + ": " + value
}

// Transcription renders the transcript and its analysis block.
func Transcription(r *model.TranscriptionResult) View {
	title := model.Transcription.Title()
	if r == nil {
		return Placeholder(title)
	}
	a := r.Analysis
	v := View{Title: title}
	v.lines("Transcript", r.Transcription)

	languages := lo.Map(a.Languages, func(l model.Language, _ int) string {
		if l.Primary {
			return l.Name + " (primary)"
		}
		return l.Name
	})
	v.lines("Analysis",
		field("Status", generationStatus(a.GenerationStatus)),
		field("Languages", strings.Join(languages, ", ")),
		field("Lip sync accuracy", optional(a.LipSyncAccuracy, "%.2f%%")),
		field("Subtitles", subtitles(a.SubtitlesStatus)),
		field("Overall sentiment", sentiment(a.OverallSentiment.Tone, a.OverallSentiment.Value)))
	v.table("Key events", detectionHeader, detectionRows(a.KeyEvents))
	v.table("Sentiment", []string{"Time", "Value"}, lo.Map(a.SentimentAnalysis, func(p model.SentimentPoint, _ int) []string {
		return []string{p.Time, decimal(p.Value)}
	}))
	v.table("Keywords", []string{"Word", "Count", "Type"}, lo.Map(a.KeywordAnalysis, func(k model.Keyword, _ int) []string {
		return []string{k.Word, fmt.Sprint(k.Count), k.Type}
	}))
	v.labels(a.TextLabels)
	return v.placeholderIfEmpty()
}

func generationStatus(s *model.GenerationStatus) string {
	if s == nil {
		return ""
	}
	status := "failed"
	if s.Success {
		status = "generated"
	}
	if s.Model != "" {
		status += " by " + s.Model
	}
	return status
}

func subtitles(s *model.SubtitlesStatus) string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("created=%t synchronized=%t", s.Created, s.Synchronized)
}

// optional formats a value the backend may leave out; nil formats as "".
func optional[T any](v *T, format string) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf(format, *v)
}

func optionalPercent(v *float64) string {
	if v == nil {
		return ""
	}
	return percent(*v)
}

func sentiment(tone string, value float64) string {
	if tone == "" {
		return ""
	}
	return fmt.Sprintf("%s (%s)", tone, decimal(value))
}

// Audio renders sound events, music and the audio feature measurements.
func Audio(r *model.AudioResult) View {
	title := model.AudioAnalysis.Title()
	if r == nil {
		return Placeholder(title)
	}
	v := View{Title: title}
	v.table("Key events", detectionHeader, detectionRows(r.KeyEvents))
	v.lines("Timeline", bullets(r.Timeline)...)
	v.lines("Music patterns", bullets(r.MusicPatterns)...)
	v.lines("Sound effects", bullets(r.SoundEffects)...)
	v.table("Audio features", []string{"Feature", "Value"}, measureRows(r.AudioFeatures))
	v.table("Emotions", []string{"Emotion", "Score"}, emotionRows(r.EmotionAnalysis))
	v.table("Background noise", []string{"Source", "Level"}, measureRows(r.BackgroundNoise))
	v.lines("Transcription", r.Transcription)
	v.labels(r.Labels)
	return v.placeholderIfEmpty()
}

// Symbols renders detected symbols and the risk assessment.
func Symbols(r *model.SymbolsResult) View {
	title := model.SymbolDetection.Title()
	if r == nil {
		return Placeholder(title)
	}
	v := View{Title: title}
	risk := r.RiskAnalysis
	v.lines("Risk",
		field("Overall risk", optionalPercent(risk.OverallRisk)),
		field("Level", risk.RiskLevel),
		field("Label", risk.RiskLabel))
	v.table("Detected symbols", detectionHeader, detectionRows(r.DetectedSymbols))
	v.table("Occurrences", []string{"Symbol", "Count"}, countRows(r.SymbolOccurrences))
	v.lines("Categories", bullets(r.SymbolCategories)...)
	v.labels(r.Labels)
	return v.placeholderIfEmpty()
}

// Objects renders detected objects, their counts and interactions.
func Objects(r *model.ObjectsResult) View {
	title := model.ObjectDetection.Title()
	if r == nil {
		return Placeholder(title)
	}
	v := View{Title: title}
	v.lines("Categories", bullets(r.ObjectCategories)...)
	v.table("Key objects", detectionHeader, detectionRows(r.KeyObjects))
	v.table("Occurrences", []string{"Object", "Count"}, countRows(r.ObjectOccurrences))
	v.table("Interactions", detectionHeader, detectionRows(r.ObjectInteractions))
	v.labels(r.Labels)
	return v.placeholderIfEmpty()
}

// PointsOfInterest renders heat zones, hotspots and an eye tracking digest.
func PointsOfInterest(r *model.POIResult) View {
	title := model.PointOfInterest.Title()
	if r == nil {
		return Placeholder(title)
	}
	v := View{Title: title}
	a := r.Analysis
	v.lines("Analysis",
		field("Heat zones", a.HeatZonesAnalysis),
		field("Coordinates", a.HeatZoneCoordinates),
		field("Hotspots", a.Hotspots),
		field("Labeling", a.POILabeling))
	v.table("Heat zones", []string{"Zone", "Time", "Description", "Intensity", "Size"}, lo.Map(r.HeatZones, func(z model.HeatZone, _ int) []string {
		return []string{fmt.Sprint(z.ID), z.Time, z.Description, percent(z.Intensity), decimal(z.Size)}
	}))
	v.table("Zone coordinates", []string{"Zone", "X", "Y", "Width", "Height"}, lo.Map(r.HeatZoneCoordinates, func(z model.HeatZoneCoordinate, _ int) []string {
		return []string{fmt.Sprint(z.ID), decimal(z.X), decimal(z.Y), decimal(z.Width), decimal(z.Height)}
	}))
	v.table("Attention hotspots", []string{"Time", "Description", "X", "Y", "Intensity"}, lo.Map(r.AttentionHotspots, func(h model.Hotspot, _ int) []string {
		return []string{h.Time, h.Description, decimal(h.X), decimal(h.Y), percent(h.Intensity)}
	}))
	if n := len(r.EyeTrackingData); n > 0 {
		last := r.EyeTrackingData[n-1]
		v.lines("Eye tracking", fmt.Sprintf("%d samples, last at %.1fs (%.2f, %.2f)", n, last.Timestamp, last.X, last.Y))
	}
	v.labels(r.Labels)
	return v.placeholderIfEmpty()
}

// Scenes renders scene counts, transitions and key scenes. Dominant colors
// print as hex.
func Scenes(r *model.ScenesResult) View {
	title := model.SceneDetection.Title()
	if r == nil {
		return Placeholder(title)
	}
	v := View{Title: title}
	v.lines("Overview",
		field("Scenes", optional(r.SceneCount, "%d")),
		field("Average scene duration", optional(r.AverageSceneDuration, "%.1fs")),
		field("Scene types", strings.Join(r.SceneTypes, ", ")))
	v.table("Transitions", []string{"Time", "From", "To"}, lo.Map(r.SceneTransitions, func(t model.SceneTransition, _ int) []string {
		return []string{t.Time, t.From, t.To}
	}))
	v.lines("Dominant colors", lo.Map(r.DominantColors, func(c model.Color, _ int) string {
		return fmt.Sprintf("#%02x%02x%02x", clamp(c.R), clamp(c.G), clamp(c.B))
	})...)
	v.lines("Descriptions", bullets(r.SceneDescriptions)...)
	v.table("Key scenes", []string{"Time", "Type", "Mood", "Complexity", "Motion", "Text"}, lo.Map(r.KeyScenes, func(k model.KeyScene, _ int) []string {
		return []string{k.Time, k.Type, k.Mood, decimal(k.Complexity), decimal(k.MotionIntensity), k.Text}
	}))
	if n := len(r.SimilarityMatrix); n > 0 {
		v.lines("Similarity", fmt.Sprintf("%dx%d scene similarity matrix", n, len(r.SimilarityMatrix[0])))
	}
	v.labels(r.Labels)
	return v.placeholderIfEmpty()
}

func clamp(c int) int {
	return lo.Clamp(c, 0, 255)
}

// Emotions renders the emotion score table.
func Emotions(r []model.EmotionScore) View {
	v := View{Title: model.EmotionRecognition.Title()}
	v.table("Scores", []string{"Emotion", "Score"}, emotionRows(r))
	return v.placeholderIfEmpty()
}
