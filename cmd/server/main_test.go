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

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jaycherian/gcp-go-video-moderation/internal/cloud"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	test "github.com/jaycherian/gcp-go-video-moderation/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterServesStats(t *testing.T) {
	config := *test.GetConfig()
	config.Storage.LocalDir = t.TempDir()
	state.config = &config
	t.Cleanup(func() {
		CloseState()
		state = &StateManager{}
	})

	require.NoError(t, InitState(context.Background()))
	r := NewRouter(&config)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var stats model.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.Analyses)
}

func TestUnknownBackendsAreRejected(t *testing.T) {
	config := cloud.NewConfig()
	config.Storage.Backend = "ftp"
	_, err := newVideoStore(config, &cloud.ServiceClients{})
	assert.Error(t, err)

	config.History.Backend = "sqlite"
	_, err = newHistoryStore(config, &cloud.ServiceClients{})
	assert.Error(t, err)

	config.Application.Analyzer = "oracle"
	_, err = newAnalyzer(config, &cloud.ServiceClients{}, nil)
	assert.Error(t, err)
}
