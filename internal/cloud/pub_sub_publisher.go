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

package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/cenkalti/backoff/v4"
)

// PubSubPublisher publishes JSON documents to a topic, retrying transient
// failures with exponential backoff.
type PubSubPublisher struct {
	topic      *pubsub.Topic
	maxElapsed time.Duration
}

// NewPubSubPublisher publishes to topic.
func NewPubSubPublisher(topic *pubsub.Topic) *PubSubPublisher {
	return &PubSubPublisher{topic: topic, maxElapsed: 30 * time.Second}
}

// Publish encodes v and waits for the server to acknowledge it. attributes
// are attached to the message as-is.
func (p *PubSubPublisher) Publish(ctx context.Context, v interface{}, attributes map[string]string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}

	exp := backoff.NewExponentialBackOff()
	exp.MaxElapsedTime = p.maxElapsed

	var id string
	err = backoff.RetryNotify(func() error {
		var pubErr error
		id, pubErr = p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes}).Get(ctx)
		return pubErr
	}, backoff.WithContext(exp, ctx), func(err error, wait time.Duration) {
		slog.WarnContext(ctx, "publish failed, retrying", "topic", p.topic.ID(), "wait", wait, "error", err)
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish to %s: %w", p.topic.ID(), err)
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *PubSubPublisher) Stop() {
	p.topic.Stop()
}
