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

package cor

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
)

// BaseChain executes its commands sequentially under one span. After each
// command the value at CtxOut becomes the next command's CtxIn. Unless
// ContinueOnFailure is set, the first recorded error stops the chain.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool
	commands          []Command
}

// NewBaseChain returns an empty chain that stops on the first failure.
func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

// ContinueOnFailure keeps running later commands after one fails.
func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

// AddCommand appends command to the chain.
func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// Commands returns the configured steps in execution order.
func (c *BaseChain) Commands() []Command {
	return append([]Command(nil), c.commands...)
}

// IsExecutable is true when the chain context carries a Go context.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil
}

// Execute runs the commands in order under one span. Each command output
// becomes the next command input; cancellation stops the chain.
func (c *BaseChain) Execute(chCtx Context) {
	outerCtx, chainSpan := c.Tracer.Start(chCtx.GetContext(), fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()

	for _, command := range c.commands {
		if err := outerCtx.Err(); err != nil {
			chCtx.AddError(c.GetName(), fmt.Errorf("chain %s cancelled before %s: %w", c.GetName(), command.GetName(), err))
			break
		}

		if chCtx.HasErrors() && !c.continueOnFailure {
			slog.DebugContext(outerCtx, "skipping remaining commands after failure", "chain", c.GetName(), "next", command.GetName())
			break
		}

		commandContext, commandSpan := c.Tracer.Start(outerCtx, command.GetName())
		before := len(chCtx.GetErrors())

		if command.IsExecutable(chCtx) {
			chCtx.SetContext(commandContext)
			command.Execute(chCtx)
			chCtx.SetContext(outerCtx)
		} else {
			commandSpan.SetStatus(codes.Error, "command not executable")
			slog.DebugContext(commandContext, "command not executable", "chain", c.GetName(), "command", command.GetName())
		}

		errs := chCtx.GetErrors()
		if len(errs) > before {
			commandSpan.SetStatus(codes.Error, "command failed")
			if err, ok := errs[command.GetName()]; ok {
				slog.ErrorContext(commandContext, "command failed", "chain", c.GetName(), "command", command.GetName(), "error", err)
			}
		} else {
			commandSpan.SetStatus(codes.Ok, "command completed")
		}
		commandSpan.End()

		// A command that wrote no output leaves the input in place for the next one.
		if outputValue := chCtx.Get(CtxOut); outputValue != nil {
			chCtx.Add(CtxIn, outputValue)
			chCtx.Remove(CtxOut)
		}
	}

	if chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Error, "chain failed")
	} else {
		chainSpan.SetStatus(codes.Ok, "chain completed")
	}
}
