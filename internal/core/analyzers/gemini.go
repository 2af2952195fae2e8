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

package analyzers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/template"

	"github.com/jaycherian/gcp-go-video-moderation/internal/cloud"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/services"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

// DefaultMaxInlineBytes bounds videos sent inline rather than by gs:// URI.
const DefaultMaxInlineBytes = 20 << 20

// Gemini asks a Gemini model for each capability. The prompt for a
// capability is its configured template rendered with EXAMPLE_JSON (the
// example payload, used as a few-shot example), VIDEO_NAME and ADVANCED.
// Videos stored in Cloud Storage are referenced by URI; local videos are sent
// inline.
type Gemini struct {
	Standard       *cloud.QuotaAwareGenerativeAIModel
	Advanced       *cloud.QuotaAwareGenerativeAIModel // falls back to Standard when nil
	Store          services.VideoStore
	MaxInlineBytes int64

	templates    map[model.Capability]*template.Template
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	retries      metric.Int64Counter
}

// NewGemini parses the prompt templates. Capabilities without a template fail
// at analysis time.
func NewGemini(config *cloud.Config, clients *cloud.ServiceClients, store services.VideoStore) (*Gemini, error) {
	standard := clients.AgentModels[cloud.StandardModel]
	if standard == nil {
		return nil, fmt.Errorf("agent model %q is not configured", cloud.StandardModel)
	}
	g := &Gemini{
		Standard:       standard,
		Advanced:       clients.AgentModels[cloud.AdvancedModel],
		Store:          store,
		MaxInlineBytes: DefaultMaxInlineBytes,
		templates:      make(map[model.Capability]*template.Template),
	}
	for _, c := range model.AllCapabilities() {
		text, err := config.PromptTemplates.For(c)
		if err != nil {
			continue
		}
		tmpl, err := template.New(c.String()).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("invalid prompt template for %s: %w", c, err)
		}
		g.templates[c] = tmpl
	}

	meter := otel.Meter(cor.MeterName)
	g.inputTokens, _ = meter.Int64Counter("analyzer.gemini.token.input")
	g.outputTokens, _ = meter.Int64Counter("analyzer.gemini.token.output")
	g.retries, _ = meter.Int64Counter("analyzer.gemini.retry")
	return g, nil
}

// Prompt renders the prompt text for req.
func (g *Gemini) Prompt(req Request) (string, error) {
	tmpl, ok := g.templates[req.Capability]
	if !ok {
		return "", fmt.Errorf("no prompt template configured for %s", req.Capability)
	}
	example, err := json.Marshal(model.GetExample(req.Capability))
	if err != nil {
		return "", err
	}
	vocabulary := map[string]interface{}{
		"EXAMPLE_JSON": string(example),
		"VIDEO_NAME":   req.Video.Name,
		"ADVANCED":     req.Advanced,
	}
	var doc bytes.Buffer
	if err := tmpl.Execute(&doc, vocabulary); err != nil {
		return "", fmt.Errorf("failed to execute prompt template for %s: %w", req.Capability, err)
	}
	return doc.String(), nil
}

func (g *Gemini) contents(ctx context.Context, prompt string, video services.StoredVideo) ([]*genai.Content, error) {
	if video.IsGCS() {
		return cloud.NewVideoContent(prompt, video.URI, video.MIMEType), nil
	}
	rc, err := g.Store.Open(ctx, video)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, g.MaxInlineBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", video.URI, err)
	}
	if int64(len(data)) > g.MaxInlineBytes {
		return nil, fmt.Errorf("video %s exceeds the %d byte inline limit; use the gcs storage backend", video.Name, g.MaxInlineBytes)
	}
	return cloud.NewInlineVideoContent(prompt, data, video.MIMEType), nil
}

// Analyze asks the model for one capability and returns the reply once it
// passes CheckShape.
func (g *Gemini) Analyze(ctx context.Context, req Request) (json.RawMessage, error) {
	prompt, err := g.Prompt(req)
	if err != nil {
		return nil, err
	}
	contents, err := g.contents(ctx, prompt, req.Video)
	if err != nil {
		return nil, err
	}
	m := g.Standard
	if req.Advanced && g.Advanced != nil {
		m = g.Advanced
	}
	out, err := cloud.GenerateMultiModalResponse(ctx, g.inputTokens, g.outputTokens, g.retries, m, contents)
	if err != nil {
		return nil, fmt.Errorf("gemini request for %s failed: %w", req.Capability, err)
	}
	raw := json.RawMessage(out)
	if err := CheckShape(req.Capability, raw); err != nil {
		return nil, err
	}
	return raw, nil
}
