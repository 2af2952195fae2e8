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

package commands

import (
	goctx "context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-video-moderation/internal/core/analyzers"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/services"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// CapabilityAnalysis runs every selected capability against the stored video
// on a pool of workers. Each finished capability is reported as a log line,
// a progress step between ProgressStored and ProgressAnalyzed and a snapshot
// of the results gathered so far. A failed capability is logged and left out
// of the results; the step fails only when nothing succeeded.
type CapabilityAnalysis struct {
	cor.BaseCommand
	analyzer        analyzers.Analyzer
	numberOfWorkers int
	duration        metric.Float64Histogram
}

// NewCapabilityAnalysis runs analyzer for every selected capability using at
// most numberOfWorkers concurrent calls.
func NewCapabilityAnalysis(name string, analyzer analyzers.Analyzer, numberOfWorkers int) *CapabilityAnalysis {
	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}
	out := &CapabilityAnalysis{
		BaseCommand:     *cor.NewBaseCommand(name),
		analyzer:        analyzer,
		numberOfWorkers: numberOfWorkers,
	}
	out.InputParamName = VideoKey
	out.duration, _ = out.GetMeter().Float64Histogram(fmt.Sprintf("%s.duration", name), metric.WithUnit("s"))
	return out
}

// IsExecutable requires a stored video and the analysis settings.
func (s *CapabilityAnalysis) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.GetContext() != nil &&
		context.Get(VideoKey) != nil &&
		context.Get(SettingsKey) != nil
}

type capabilityJob struct {
	ctx     goctx.Context
	request analyzers.Request
}

type capabilityResponse struct {
	capability model.Capability
	value      json.RawMessage
	err        error
}

// Execute fans the selected capabilities out to the workers and reports each
// finished result as a cumulative snapshot.
func (s *CapabilityAnalysis) Execute(context cor.Context) {
	video := context.Get(VideoKey).(services.StoredVideo)
	settings, advanced := settingsFrom(context)
	selected := settings.Selected()
	if len(selected) == 0 {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("no analysis capability selected"))
		return
	}

	jobs := make(chan capabilityJob, len(selected))
	responses := make(chan capabilityResponse, len(selected))

	var wg sync.WaitGroup
	for w := 0; w < s.numberOfWorkers && w < len(selected); w++ {
		wg.Add(1)
		go s.worker(jobs, responses, &wg)
	}
	for _, c := range selected {
		jobs <- capabilityJob{
			ctx: context.GetContext(),
			request: analyzers.Request{
				Capability: c,
				Advanced:   advanced.Enabled(c),
				Video:      video,
			},
		}
	}
	close(jobs)

	reporter := context.GetReporter()
	ctx := context.GetContext()
	results := model.Results{}
	failed := 0
	for done := 1; done <= len(selected); done++ {
		r := <-responses
		if r.err != nil {
			failed++
			slog.WarnContext(ctx, "capability analysis failed", "capability", r.capability.String(), "video", video.Name, "error", r.err)
			reporter.Log(ctx, fmt.Sprintf("%s analysis failed: %v", r.capability.Title(), r.err))
		} else {
			results[r.capability.ResultKey()] = r.value
			reporter.Log(ctx, fmt.Sprintf("%s analysis complete", r.capability.Title()))
			reporter.Results(ctx, results.Clone())
		}
		reporter.Progress(ctx, ProgressStored+(ProgressAnalyzed-ProgressStored)*float64(done)/float64(len(selected)))
	}
	wg.Wait()
	close(responses)

	if failed == len(selected) {
		s.GetErrorCounter().Add(ctx, 1)
		context.AddError(s.GetName(), fmt.Errorf("all %d capability analyses failed", failed))
		return
	}

	s.GetSuccessCounter().Add(ctx, 1)
	context.Add(ResultsKey, results)
	context.Add(s.GetOutputParam(), results)
}

func (s *CapabilityAnalysis) worker(jobs <-chan capabilityJob, responses chan<- capabilityResponse, wg *sync.WaitGroup) {
	defer wg.Done()
	for j := range jobs {
		c := j.request.Capability
		ctx, span := s.Tracer.Start(j.ctx, fmt.Sprintf("%s_%s", s.GetName(), c))
		span.SetAttributes(
			attribute.String("capability", c.String()),
			attribute.Bool("advanced", j.request.Advanced),
		)

		start := time.Now()
		value, err := s.analyzer.Analyze(ctx, j.request)
		if s.duration != nil {
			s.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("capability", c.String())))
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "completed")
		}
		span.End()
		responses <- capabilityResponse{capability: c, value: value, err: err}
	}
}
