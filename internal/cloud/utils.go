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
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

const (
	ConfigFileBaseName  = ".env"
	ConfigFileExtension = ".toml"
	ConfigSeparator     = "."
	EnvConfigFilePrefix = "MODERATION_CONFIG_PREFIX" // Directory holding the configuration files.
	EnvConfigRuntime    = "MODERATION_RUNTIME"       // Runtime overlay, e.g. "local", "test", "prod".
	DefaultRuntime      = "local"
	MaxRetries          = 3 // Retries of a failed Gemini call.
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// ConfigFiles returns the base and runtime configuration file names derived
// from the environment.
func ConfigFiles() (base string, runtime string) {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix = prefix + string(os.PathSeparator)
	}
	env := os.Getenv(EnvConfigRuntime)
	if env == "" {
		env = DefaultRuntime
	}
	base = prefix + ConfigFileBaseName + ConfigFileExtension
	runtime = prefix + ConfigFileBaseName + ConfigSeparator + env + ConfigFileExtension
	return base, runtime
}

// LoadConfig decodes .env.toml and then .env.<runtime>.toml into baseConfig,
// so values in the runtime file override the base file. Missing files are
// skipped.
func LoadConfig(baseConfig interface{}) error {
	baseFile, runtimeFile := ConfigFiles()
	for _, name := range []string{baseFile, runtimeFile} {
		if !fileExists(name) {
			slog.Debug("configuration file not found, skipping", "file", name)
			continue
		}
		if _, err := toml.DecodeFile(name, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
		slog.Debug("loaded configuration file", "file", name)
	}
	return nil
}

// GenerateMultiModalResponse sends contents to the model and returns the text
// of every candidate concatenated, with any markdown code fence removed.
// Failed calls are retried with exponential backoff up to MaxRetries times.
func GenerateMultiModalResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	retryCounter metric.Int64Counter,
	model *QuotaAwareGenerativeAIModel,
	content []*genai.Content) (value string, err error) {

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = model.RetryInterval()
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, MaxRetries), ctx)

	var resp *genai.GenerateContentResponse
	err = backoff.RetryNotify(func() error {
		var callErr error
		resp, callErr = model.GenerateContent(ctx, content)
		if IsBreakerOpen(callErr) {
			return backoff.Permanent(callErr)
		}
		return callErr
	}, policy, func(err error, wait time.Duration) {
		if retryCounter != nil {
			retryCounter.Add(ctx, 1)
		}
		slog.WarnContext(ctx, "gemini call failed, retrying", "model", model.ModelName, "wait", wait, "error", err)
	})
	if err != nil {
		return "", err
	}

	if resp.UsageMetadata != nil {
		if inputTokenCounter != nil {
			inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		}
		if outputTokenCounter != nil {
			outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
		}
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return StripCodeFence(sb.String()), nil
}

// StripCodeFence removes a leading ```json (or ```) and trailing ``` fence.
func StripCodeFence(in string) string {
	out := strings.TrimSpace(in)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}

// NewVideoContent builds a single user turn holding the prompt and a video
// referenced by URI.
func NewVideoContent(prompt string, uri string, mimeType string) []*genai.Content {
	return []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
			{FileData: &genai.FileData{FileURI: uri, MIMEType: mimeType}},
		},
	}}
}

// NewInlineVideoContent is NewVideoContent for a video sent as bytes.
func NewInlineVideoContent(prompt string, data []byte, mimeType string) []*genai.Content {
	return []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
		},
	}}
}
