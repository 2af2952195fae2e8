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

package model_test

import (
	"encoding/json"
	"testing"

	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDecision(t *testing.T) {
	d := model.NewAdminDecision()
	assert.Equal(t, model.LabelWhite, d.ContentLabel)
	assert.Equal(t, 50, d.AdSuitability)
	assert.False(t, d.CopyrightViolation)
	assert.False(t, d.ProhibitedContent)
	assert.Equal(t, model.Neutral, d.RecommendationLevel)
	assert.NoError(t, d.Validate())
}

func TestDecisionValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "full", body: `{"contentLabel":"18+","adSuitability":100,"copyrightViolation":true,"prohibitedContent":false,"recommendationLevel":"Highly Not Recommended"}`},
		{name: "partial", body: `{"contentLabel":"gray"}`},
		{name: "bad label", body: `{"contentLabel":"purple"}`, wantErr: "contentLabel must be one of"},
		{name: "too suitable", body: `{"adSuitability":101}`, wantErr: "adSuitability must be at most 100"},
		{name: "negative", body: `{"adSuitability":-1}`, wantErr: "adSuitability must be at least 0"},
		{name: "bad level", body: `{"recommendationLevel":"Meh"}`, wantErr: "recommendationLevel must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req model.DecisionRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			err := req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRecommendationRank(t *testing.T) {
	assert.Equal(t, 4, model.HighlyRecommended.Rank())
	assert.Equal(t, 2, model.Neutral.Rank())
	assert.Equal(t, 0, model.HighlyNotRecommended.Rank())
	assert.Equal(t, -1, model.RecommendationLevel("Maybe").Rank())
	assert.Greater(t, model.Recommended.Rank(), model.NotRecommended.Rank())

	l, err := model.ParseRecommendationLevel("not recommended")
	require.NoError(t, err)
	assert.Equal(t, model.NotRecommended, l)
}

func TestSuggestions(t *testing.T) {
	r := model.Results{}
	require.NoError(t, r.Set("audio", model.AudioResult{MusicPatterns: []string{"", "Rock"}}))
	require.NoError(t, r.Set("symbols", model.SymbolsResult{DetectedSymbols: []model.Detection{{Symbol: "swastika"}}}))

	d := model.NewAdminDecision().WithSuggestions(r)
	assert.Equal(t, 75, d.AdSuitability)
	assert.True(t, d.CopyrightViolation)
	assert.True(t, d.ProhibitedContent)
	assert.Equal(t, model.LabelWhite, d.ContentLabel)

	empty := model.NewAdminDecision().WithSuggestions(nil)
	assert.False(t, empty.CopyrightViolation)
	assert.False(t, empty.ProhibitedContent)
}
