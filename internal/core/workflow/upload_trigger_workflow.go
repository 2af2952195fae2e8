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

package workflow

import (
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/services"
)

// UploadTriggerWorkflow handles Cloud Storage finalize notifications for the
// upload bucket. Every capability is analysed with the standard models and the
// outcome is recorded in history, where moderators pick it up.
type UploadTriggerWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

// NewUploadTriggerWorkflow analyzes videos announced by bucket notifications
// with every capability enabled.
func NewUploadTriggerWorkflow(history services.HistoryStore, analyzer analyzers.Analyzer, numberOfWorkers int) *UploadTriggerWorkflow {
	chain := cor.NewBaseChain("upload-trigger")
	chain.AddCommand(commands.NewMediaTriggerToVideo("media-trigger-to-video"))
	chain.AddCommand(commands.NewCapabilityAnalysis("analyze-capabilities", analyzer, numberOfWorkers))
	chain.AddCommand(commands.NewHistoryPersist("persist-history", history))

	return &UploadTriggerWorkflow{BaseCommand: *cor.NewBaseCommand("upload-trigger-workflow"), chain: chain}
}

func (w *UploadTriggerWorkflow) Execute(context cor.Context) {
	if context.Get(commands.SettingsKey) == nil {
		context.Add(commands.SettingsKey, model.AllAnalysisSettings())
	}
	if context.Get(commands.AdvancedKey) == nil {
		context.Add(commands.AdvancedKey, model.AdvancedSettings{})
	}
	w.chain.Execute(context)
}
