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

package cor_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-video-moderation/internal/core/cor"
	"github.com/stretchr/testify/assert"
)

type upper struct {
	cor.BaseCommand
}

func (u *upper) Execute(ctx cor.Context) {
	in := ctx.Get(u.GetInputParam()).(string)
	ctx.GetReporter().Log(ctx.GetContext(), "upper "+in)
	ctx.Add(u.GetOutputParam(), strings.ToUpper(in))
}

type failing struct {
	cor.BaseCommand
}

func (f *failing) Execute(ctx cor.Context) {
	f.GetErrorCounter().Add(ctx.GetContext(), 1)
	ctx.AddError(f.GetName(), errors.New("boom"))
}

type recorder struct {
	cor.NopReporter
	lines []string
}

func (r *recorder) Log(_ context.Context, line string) {
	r.lines = append(r.lines, line)
}

func TestChainPipesOutputToInput(t *testing.T) {
	chain := cor.NewBaseChain("pipe")
	chain.AddCommand(&upper{BaseCommand: *cor.NewBaseCommand("first")})
	chain.AddCommand(&upper{BaseCommand: *cor.NewBaseCommand("second")})

	rep := &recorder{}
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.SetReporter(rep)
	chCtx.Add(cor.CtxIn, "abc")

	chain.Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	assert.Equal(t, "ABC", chCtx.Get(cor.CtxIn))
	assert.Equal(t, []string{"upper abc", "upper ABC"}, rep.lines)
}

func TestChainStopsOnFailure(t *testing.T) {
	chain := cor.NewBaseChain("stop")
	chain.AddCommand(&failing{BaseCommand: *cor.NewBaseCommand("fail")})
	chain.AddCommand(&upper{BaseCommand: *cor.NewBaseCommand("never")})

	rep := &recorder{}
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.SetReporter(rep)
	chCtx.Add(cor.CtxIn, "abc")

	chain.Execute(chCtx)

	assert.True(t, chCtx.HasErrors())
	assert.Contains(t, chCtx.GetErrors(), "fail")
	assert.Empty(t, rep.lines)
}

func TestChainContinueOnFailure(t *testing.T) {
	chain := cor.NewBaseChain("continue").ContinueOnFailure(true)
	chain.AddCommand(&failing{BaseCommand: *cor.NewBaseCommand("fail")})
	chain.AddCommand(&upper{BaseCommand: *cor.NewBaseCommand("after")})

	rep := &recorder{}
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.SetReporter(rep)
	chCtx.Add(cor.CtxIn, "abc")

	chain.Execute(chCtx)

	assert.True(t, chCtx.HasErrors())
	assert.Contains(t, chCtx.GetErrors(), "fail")
	assert.Equal(t, []string{"upper abc"}, rep.lines)
	assert.Equal(t, "ABC", chCtx.Get(cor.CtxIn))
	assert.Nil(t, chCtx.Get(cor.CtxOut))
}

func TestChainKeepsInputWhenCommandWritesNoOutput(t *testing.T) {
	chain := cor.NewBaseChain("passthrough").ContinueOnFailure(true)
	chain.AddCommand(&failing{BaseCommand: *cor.NewBaseCommand("first")})
	chain.AddCommand(&failing{BaseCommand: *cor.NewBaseCommand("second")})

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(cor.CtxIn, "abc")

	chain.Execute(chCtx)

	assert.Len(t, chCtx.GetErrors(), 2)
	assert.Equal(t, "abc", chCtx.Get(cor.CtxIn))
}

func TestChainHonoursCancellation(t *testing.T) {
	chain := cor.NewBaseChain("cancelled")
	chain.AddCommand(&upper{BaseCommand: *cor.NewBaseCommand("never")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	chCtx.Add(cor.CtxIn, "abc")

	chain.Execute(chCtx)

	assert.True(t, chCtx.HasErrors())
	assert.Equal(t, "abc", chCtx.Get(cor.CtxIn))
}

func TestSetReporterNilFallsBack(t *testing.T) {
	chCtx := cor.NewBaseContext()
	chCtx.SetReporter(nil)
	assert.NotNil(t, chCtx.GetReporter())
}
