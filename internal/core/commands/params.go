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

// Package commands holds the steps of the analysis pipeline. Each step is a
// cor.Command; steps exchange the uploaded video, the selected settings, the
// gathered results and the history id through well known context keys.
package commands

import (
	"io"

	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
)

// Context keys shared by the pipeline steps.
const (
	UploadKey     = "__UPLOAD__"      // *Upload
	VideoKey      = "__VIDEO__"       // services.StoredVideo
	SettingsKey   = "__SETTINGS__"    // model.AnalysisSettings
	AdvancedKey   = "__ADVANCED__"    // model.AdvancedSettings
	ResultsKey    = "__RESULTS__"     // model.Results
	AnalysisIDKey = "__ANALYSIS_ID__" // string
)

// Progress milestones reported by the pipeline.
const (
	ProgressStored   = 5.0
	ProgressAnalyzed = 95.0
	ProgressDone     = 100.0
)

// Upload is a video received from a client that has not been stored yet.
type Upload struct {
	Name     string
	MIMEType string
	Content  io.Reader
}

func settingsFrom(context interface{ Get(string) interface{} }) (model.AnalysisSettings, model.AdvancedSettings) {
	settings, _ := context.Get(SettingsKey).(model.AnalysisSettings)
	advanced, _ := context.Get(AdvancedKey).(model.AdvancedSettings)
	return settings, advanced
}
