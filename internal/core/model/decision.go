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

package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// ContentLabel is the moderator's classification of the video.
type ContentLabel string

const (
	LabelWhite ContentLabel = "white"
	LabelGray  ContentLabel = "gray"
	LabelBlack ContentLabel = "black"
	LabelAdult ContentLabel = "18+"
)

// ContentLabels lists the labels in display order.
var ContentLabels = []ContentLabel{LabelWhite, LabelGray, LabelBlack, LabelAdult}

// RecommendationLevel is an ordered five step recommendation.
type RecommendationLevel string

const (
	HighlyRecommended    RecommendationLevel = "Highly Recommended"
	Recommended          RecommendationLevel = "Recommended"
	Neutral              RecommendationLevel = "Neutral"
	NotRecommended       RecommendationLevel = "Not Recommended"
	HighlyNotRecommended RecommendationLevel = "Highly Not Recommended"
)

// RecommendationLevels lists the levels from most to least favourable.
var RecommendationLevels = []RecommendationLevel{
	HighlyRecommended, Recommended, Neutral, NotRecommended, HighlyNotRecommended,
}

// Rank orders the levels: Highly Recommended is 4, Highly Not Recommended is 0.
// Unknown levels rank -1.
func (l RecommendationLevel) Rank() int {
	idx := lo.IndexOf(RecommendationLevels, l)
	if idx < 0 {
		return -1
	}
	return len(RecommendationLevels) - 1 - idx
}

// ParseRecommendationLevel matches a level case-insensitively.
func ParseRecommendationLevel(s string) (RecommendationLevel, error) {
	for _, l := range RecommendationLevels {
		if strings.EqualFold(string(l), strings.TrimSpace(s)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown recommendation level: %q", s)
}

// ParseContentLabel matches a label case-insensitively.
func ParseContentLabel(s string) (ContentLabel, error) {
	for _, l := range ContentLabels {
		if strings.EqualFold(string(l), strings.TrimSpace(s)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown content label: %q", s)
}

// AdminDecision is the moderator's verdict for one analysis. A decision may be
// partially populated; empty enum fields are accepted.
type AdminDecision struct {
	ContentLabel        ContentLabel        `json:"contentLabel,omitempty" validate:"omitempty,oneof=white gray black 18+"`
	AdSuitability       int                 `json:"adSuitability" validate:"min=0,max=100"`
	CopyrightViolation  bool                `json:"copyrightViolation"`
	ProhibitedContent   bool                `json:"prohibitedContent"`
	RecommendationLevel RecommendationLevel `json:"recommendationLevel,omitempty" validate:"omitempty,oneof='Highly Recommended' 'Recommended' 'Neutral' 'Not Recommended' 'Highly Not Recommended'"`
}

// DecisionRequest is the body of POST /api/admin-decision. AnalysisID ties the
// decision to a stored history entry and may be empty.
type DecisionRequest struct {
	AnalysisID string `json:"analysisId,omitempty" validate:"omitempty,max=128"`
	AdminDecision
}

// NewAdminDecision returns the admin panel defaults.
func NewAdminDecision() AdminDecision {
	return AdminDecision{
		ContentLabel:        LabelWhite,
		AdSuitability:       50,
		RecommendationLevel: Neutral,
	}
}

// WithSuggestions pre-fills the decision from the analysis: ad suitability is
// set to 75, any non-empty music pattern flags a copyright violation and a
// detected swastika flags prohibited content.
func (d AdminDecision) WithSuggestions(results Results) AdminDecision {
	d.AdSuitability = 75
	d.CopyrightViolation = false
	d.ProhibitedContent = false
	if audio, err := results.Audio(); err == nil && audio != nil {
		d.CopyrightViolation = lo.SomeBy(audio.MusicPatterns, func(p string) bool { return len(p) > 0 })
	}
	if symbols, err := results.Symbols(); err == nil && symbols != nil {
		d.ProhibitedContent = lo.SomeBy(symbols.DetectedSymbols, func(s Detection) bool { return s.Symbol == "swastika" })
	}
	return d
}

// ErrInvalidDecision wraps every validation failure of a decision.
var ErrInvalidDecision = errors.New("invalid admin decision")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the enum and range constraints.
func (d AdminDecision) Validate() error {
	return describe(validate.Struct(d))
}

// Validate checks the request and its embedded decision.
func (r DecisionRequest) Validate() error {
	return describe(validate.Struct(r))
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
		switch fe.Tag() {
		case "oneof":
			return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
		case "min":
			return fmt.Sprintf("%s must be at least %s, got %v", fe.Field(), fe.Param(), fe.Value())
		case "max":
			return fmt.Sprintf("%s must be at most %s, got %v", fe.Field(), fe.Param(), fe.Value())
		default:
			return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
		}
	})
	return fmt.Errorf("%w: %s", ErrInvalidDecision, strings.Join(msgs, "; "))
}
