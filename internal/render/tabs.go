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
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
)

// Capability renders the tab of one capability. A missing or malformed entry
// renders the placeholder.
func Capability(c model.Capability, results model.Results) View {
	switch c {
	case model.Summary:
		r, err := results.Summary()
		return orPlaceholder(c, err, func() View { return Summary(r) })
	case model.Transcription:
		r, err := results.Transcription()
		return orPlaceholder(c, err, func() View { return Transcription(r) })
	case model.AudioAnalysis:
		r, err := results.Audio()
		return orPlaceholder(c, err, func() View { return Audio(r) })
	case model.SymbolDetection:
		r, err := results.Symbols()
		return orPlaceholder(c, err, func() View { return Symbols(r) })
	case model.ObjectDetection:
		r, err := results.Objects()
		return orPlaceholder(c, err, func() View { return Objects(r) })
	case model.PointOfInterest:
		r, err := results.POI()
		return orPlaceholder(c, err, func() View { return PointsOfInterest(r) })
	case model.SceneDetection:
		r, err := results.Scenes()
		return orPlaceholder(c, err, func() View { return Scenes(r) })
	case model.EmotionRecognition:
		r, err := results.Emotions()
		return orPlaceholder(c, err, func() View { return Emotions(r) })
	}
	return Placeholder(c.Title())
}

func orPlaceholder(c model.Capability, err error, view func() View) View {
	if err != nil {
		return Placeholder(c.Title())
	}
	return view()
}

// Tabs renders every capability in canonical order.
func Tabs(results model.Results) []View {
	out := make([]View, 0, len(model.AllCapabilities()))
	for _, c := range model.AllCapabilities() {
		out = append(out, Capability(c, results))
	}
	return out
}

// Present renders only the capabilities that hold a result.
func Present(results model.Results) []View {
	var out []View
	for _, c := range model.AllCapabilities() {
		if results.Has(c.ResultKey()) {
			out = append(out, Capability(c, results))
		}
	}
	return out
}
