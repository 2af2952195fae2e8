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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ContentGenerator is the subset of *genai.Models used by the wrapper.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// QuotaAwareGenerativeAIModel decorates a Gemini model with a token bucket
// rate limiter and a circuit breaker. Callers block on the limiter instead of
// failing; once the breaker opens, calls fail fast with gobreaker.ErrOpenState
// until the open period has elapsed.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             ContentGenerator
	RateLimit               *rate.Limiter
	breaker                 *gobreaker.CircuitBreaker[*genai.GenerateContentResponse]
	retryInterval           time.Duration
}

// ModelOption customises a QuotaAwareGenerativeAIModel.
type ModelOption func(*QuotaAwareGenerativeAIModel)

// WithRetryInterval sets the first backoff interval used by GenerateMultiModalResponse.
func WithRetryInterval(d time.Duration) ModelOption {
	return func(q *QuotaAwareGenerativeAIModel) { q.retryInterval = d }
}

// WithBreaker configures the failures that trip the breaker and how long it stays open.
func WithBreaker(consecutiveFailures uint32, open time.Duration) ModelOption {
	return func(q *QuotaAwareGenerativeAIModel) {
		q.breaker = newBreaker(q.ModelName, consecutiveFailures, open)
	}
}

func newBreaker(name string, consecutiveFailures uint32, open time.Duration) *gobreaker.CircuitBreaker[*genai.GenerateContentResponse] {
	if consecutiveFailures == 0 {
		consecutiveFailures = 5
	}
	if open <= 0 {
		open = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker[*genai.GenerateContentResponse](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     open,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("gemini circuit breaker state change", "model", name, "from", from.String(), "to", to.String())
		},
	})
}

// NewQuotaAwareModel wraps handle. requestsPerSecond is both the refill rate
// and the burst size; values below 1 are treated as 1.
func NewQuotaAwareModel(config *genai.GenerateContentConfig, name string, handle ContentGenerator, requestsPerSecond int, opts ...ModelOption) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	q := &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: config,
		ModelName:               name,
		ModelHandle:             handle,
		RateLimit:               rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		retryInterval:           2 * time.Second,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.breaker == nil {
		q.breaker = newBreaker(name, 0, 0)
	}
	return q
}

// RetryInterval is the initial backoff interval between failed calls.
func (q *QuotaAwareGenerativeAIModel) RetryInterval() time.Duration {
	return q.retryInterval
}

// GenerateContent waits for a rate limiter token and calls the model through
// the circuit breaker.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait for %s: %w", q.ModelName, err)
	}
	return q.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
	})
}

// IsBreakerOpen reports whether err was returned because the breaker rejected the call.
func IsBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// NewGenerateContentConfig translates a model configuration into request settings.
func NewGenerateContentConfig(values VertexAiLLMModel) *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](values.Temperature),
		TopP:             genai.Ptr[float32](values.TopP),
		TopK:             genai.Ptr[float32](values.TopK),
		MaxOutputTokens:  values.MaxTokens,
		SafetySettings:   DefaultSafetySettings,
		ResponseMIMEType: values.OutputFormat,
	}
	if values.SystemInstructions != "" {
		out.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}}
	}
	return out
}
