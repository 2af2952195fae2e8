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

// Package cor is a small chain-of-responsibility runtime. A workflow is a
// Chain of Commands sharing one Context; each command reads its input from
// the context, does one piece of work and writes its output back so the next
// command can pick it up. Progress, log lines and partial analysis results are
// pushed to the Reporter attached to the context as they are produced.
package cor

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// CtxIn is the default input key. The chain moves a command's CtxOut here
	// before running the next command.
	CtxIn = "__IN__"
	// CtxOut is the default output key.
	CtxOut = "__OUT__"
)

// Reporter receives incremental updates from a running workflow. Calls are
// made from the goroutine executing the chain.
type Reporter interface {
	// Progress reports completion as a percentage in [0, 100].
	Progress(ctx context.Context, percent float64)
	// Log reports a human readable line.
	Log(ctx context.Context, line string)
	// Results reports the results gathered so far, keyed by result key.
	Results(ctx context.Context, partial map[string]json.RawMessage)
}

// NopReporter discards every update.
type NopReporter struct{}

func (NopReporter) Progress(context.Context, float64) {}
func (NopReporter) Log(context.Context, string) {}
func (NopReporter) Results(context.Context, map[string]json.RawMessage) {}

// Context is the property bag shared by the commands of a chain.
type Context interface {
	SetContext(context context.Context)
	GetContext() context.Context

	SetReporter(reporter Reporter)
	GetReporter() Reporter

	Add(key string, value interface{}) Context
	Get(key string) interface{}
	Remove(key string)

	// AddError records err against the command that produced it.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool

	// AddTempFile registers a file to be removed by Close.
	AddTempFile(file string)
	GetTempFiles() []string

	Close()
}

// Executable is anything a chain can run.
type Executable interface {
	Execute(context Context)
}

// Command is one step of a workflow.
type Command interface {
	Executable

	GetName() string
	GetInputParam() string
	GetOutputParam() string

	// IsExecutable reports whether the context holds what the command needs.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain runs commands in order. A chain is itself a Command.
type Chain interface {
	Command

	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain
}
