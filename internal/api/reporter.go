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

package api

import (
	"context"
	"encoding/json"

	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
)

// channelReporter forwards workflow updates to the response stream. Sends
// give up once the request is gone.
type channelReporter struct {
	done   <-chan struct{}
	events chan<- model.StreamEvent
}

func (r *channelReporter) send(ev model.StreamEvent) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

func (r *channelReporter) Progress(_ context.Context, percent float64) {
	r.send(model.ProgressEvent(percent))
}

func (r *channelReporter) Log(_ context.Context, line string) {
	r.send(model.LogEvent(line))
}

func (r *channelReporter) Results(_ context.Context, partial map[string]json.RawMessage) {
	r.send(model.StreamEvent{Results: model.Results(partial)})
}
