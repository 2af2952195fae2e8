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

package cloud_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-video-moderation/internal/cloud"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoadConfigOverlaysRuntime(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env.toml", `
[application]
name = "base"
thread_pool_size = 2
analyzer = "mock"

[storage]
backend = "local"
local_dir = "/tmp/base"

[agent_models.standard]
model = "gemini-2.5-flash"
rate_limit = 3
`)
	writeFile(t, dir, ".env.test.toml", `
[application]
thread_pool_size = 8

[storage]
local_dir = "/tmp/test"
`)
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "test")

	config := cloud.NewConfig()
	require.NoError(t, cloud.LoadConfig(config))

	assert.Equal(t, "base", config.Application.Name)
	assert.Equal(t, 8, config.Application.ThreadPoolSize)
	assert.Equal(t, "/tmp/test", config.Storage.LocalDir)
	assert.Equal(t, "gemini-2.5-flash", config.AgentModels["standard"].Model)
	assert.Equal(t, ":8080", config.Server.Address, "defaults survive when not overridden")
}

func TestLoadConfigMissingFilesKeepDefaults(t *testing.T) {
	t.Setenv(cloud.EnvConfigFilePrefix, t.TempDir())
	t.Setenv(cloud.EnvConfigRuntime, "")

	config := cloud.NewConfig()
	require.NoError(t, cloud.LoadConfig(config))
	assert.Equal(t, cloud.AnalyzerMock, config.Application.Analyzer)

	_, runtime := cloud.ConfigFiles()
	assert.Equal(t, ".env.local.toml", filepath.Base(runtime))
}

func TestLoadConfigRejectsBadToml(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env.toml", "[application\nname=")
	t.Setenv(cloud.EnvConfigFilePrefix, dir)

	assert.Error(t, cloud.LoadConfig(cloud.NewConfig()))
}

func TestPromptTemplateLookup(t *testing.T) {
	p := cloud.PromptTemplates{Summary: "summarise {{.VIDEO_NAME}}"}
	text, err := p.For(model.Summary)
	require.NoError(t, err)
	assert.Contains(t, text, "VIDEO_NAME")

	_, err = p.For(model.EmotionRecognition)
	assert.Error(t, err)
}

func TestParseGCSURI(t *testing.T) {
	obj, err := cloud.ParseGCSURI("gs://bucket/path/to/video.mp4")
	require.NoError(t, err)
	assert.Equal(t, "bucket", obj.Bucket)
	assert.Equal(t, "path/to/video.mp4", obj.Name)
	assert.Equal(t, "video.mp4", obj.BaseName())
	assert.Equal(t, "gs://bucket/path/to/video.mp4", obj.URI())

	for _, bad := range []string{"https://x/y", "gs://bucket", "gs:///name"} {
		_, err := cloud.ParseGCSURI(bad)
		assert.Error(t, err, bad)
	}
}
