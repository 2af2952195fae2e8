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

package commands_test

import (
	"context"
	"encoding/json"

	"github.com/jaycherian/gcp-go-video-moderation/internal/core/analyzers"
)

// analyzerFunc adapts a function to analyzers.Analyzer. Single worker tests
// only; calls are not synchronised.
type analyzerFunc func(ctx context.Context, req analyzers.Request) ([]byte, error)

func (f analyzerFunc) Analyze(ctx context.Context, req analyzers.Request) (json.RawMessage, error) {
	out, err := f(ctx, req)
	return out, err
}
