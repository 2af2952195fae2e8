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

// Package test provides the fixtures shared by the test suites: the test
// configuration, a sample bucket notification, a minimal MP4 header and a
// reporter that records pipeline updates.
package test

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/jaycherian/gcp-go-video-moderation/internal/cloud"
)

// StateManager caches the test configuration.
type StateManager struct {
	once   sync.Once
	config *cloud.Config
}

var state = &StateManager{}

// ConfigDir is the absolute path of the repository's configs directory.
func ConfigDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "configs")
}

// SetupOS points the configuration loader at configs/.env.test.toml.
func SetupOS() error {
	if err := os.Setenv(cloud.EnvConfigFilePrefix, ConfigDir()); err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig loads the test configuration once per test binary.
func GetConfig() *cloud.Config {
	state.once.Do(func() {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load test configuration: %v\n", err)
		}
		state.config = config
	})
	return state.config
}

// GetTestUploadMessageText is a finalize notification for a video dropped
// into the upload bucket.
func GetTestUploadMessageText() string {
	return `{
  "kind": "storage#object",
  "id": "moderation_uploads/incoming/test-clip-001.mp4/1728615848664286",
  "selfLink": "https://www.googleapis.com/storage/v1/b/moderation_uploads/o/incoming%2Ftest-clip-001.mp4",
  "name": "incoming/test-clip-001.mp4",
  "bucket": "moderation_uploads",
  "generation": "1728615848664286",
  "metageneration": "1",
  "contentType": "video/mp4",
  "timeCreated": "2024-10-11T03:04:08.672Z",
  "updated": "2024-10-11T03:04:08.672Z",
  "storageClass": "STANDARD",
  "size": "259348037",
  "md5Hash": "67c1rAU+1RYZzK5zp8iBkA==",
  "metadata": { "touch": "18" },
  "crc32c": "IYeSTw==",
  "etag": "CN658+yrhYkDEAE="
}`
}

// MP4Header is the start of an ISO base media file: an ftyp box with the
// isom brand followed by an empty free box. Content sniffers report it as
// video/mp4.
func MP4Header() []byte {
	return []byte{
		0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm',
		0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'i', 's', 'o', '2',
		'a', 'v', 'c', '1', 'm', 'p', '4', '1',
		0x00, 0x00, 0x00, 0x08, 'f', 'r', 'e', 'e',
	}
}

// Reporter records every update a workflow reports. It is safe for
// concurrent use.
type Reporter struct {
	mu          sync.Mutex
	percentages []float64
	lines       []string
	snapshots   []map[string]json.RawMessage
}

func (r *Reporter) Progress(_ context.Context, percent float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.percentages = append(r.percentages, percent)
}

func (r *Reporter) Log(_ context.Context, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *Reporter) Results(_ context.Context, partial map[string]json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, partial)
}

// Percentages returns every reported progress value.
func (r *Reporter) Percentages() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.percentages...)
}

// Lines returns the reported log lines.
func (r *Reporter) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// Snapshots returns every results snapshot in order.
func (r *Reporter) Snapshots() []map[string]json.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]json.RawMessage(nil), r.snapshots...)
}
