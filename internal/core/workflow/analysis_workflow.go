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

// Package workflow assembles the pipeline steps into the chains the server
// runs: one for videos uploaded through the API and one for videos dropped
// into the upload bucket.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jaycherian/gcp-go-video-moderation/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/services"
)

// AnalysisWorkflow stores an uploaded video, runs the selected capabilities
// and records the outcome in history.
type AnalysisWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

// NewAnalysisWorkflow chains storing, analysis and persistence of an upload.
func NewAnalysisWorkflow(store services.VideoStore, history services.HistoryStore, analyzer analyzers.Analyzer, numberOfWorkers int) *AnalysisWorkflow {
	chain := cor.NewBaseChain("video-analysis")
	chain.AddCommand(commands.NewVideoUpload("store-video", store))
	chain.AddCommand(commands.NewCapabilityAnalysis("analyze-capabilities", analyzer, numberOfWorkers))
	chain.AddCommand(commands.NewHistoryPersist("persist-history", history))

	out := &AnalysisWorkflow{BaseCommand: *cor.NewBaseCommand("video-analysis-workflow"), chain: chain}
	out.InputParamName = commands.UploadKey
	return out
}

func (w *AnalysisWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Outcome is the result of one workflow run.
type Outcome struct {
	AnalysisID string
	Video      services.StoredVideo
	Results    model.Results
}

// Run analyses one upload and reports progress to reporter, which may be nil.
func (w *AnalysisWorkflow) Run(
	ctx context.Context,
	upload *commands.Upload,
	settings model.AnalysisSettings,
	advanced model.AdvancedSettings,
	reporter cor.Reporter) (*Outcome, error) {

	chainCtx := cor.NewBaseContext()
	defer chainCtx.Close()
	chainCtx.SetContext(ctx)
	chainCtx.SetReporter(reporter)
	chainCtx.Add(commands.UploadKey, upload)
	chainCtx.Add(commands.SettingsKey, settings)
	chainCtx.Add(commands.AdvancedKey, advanced)

	w.Execute(chainCtx)

	if chainCtx.HasErrors() {
		return nil, joinErrors(chainCtx.GetErrors())
	}
	results, _ := chainCtx.Get(commands.ResultsKey).(model.Results)
	id, _ := chainCtx.Get(commands.AnalysisIDKey).(string)
	if results == nil || id == "" {
		return nil, fmt.Errorf("analysis finished without results")
	}
	video, _ := chainCtx.Get(commands.VideoKey).(services.StoredVideo)
	return &Outcome{AnalysisID: id, Video: video, Results: results}, nil
}

// joinErrors returns the chain errors ordered by command name.
func joinErrors(errs map[string]error) error {
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]error, 0, len(names))
	for _, name := range names {
		out = append(out, fmt.Errorf("%s: %w", name, errs[name]))
	}
	return errors.Join(out...)
}
