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

// Package render turns analysis results into Views: a title followed by
// sections of text lines and tables. Renderers never fail; a missing or
// unreadable result renders the NoResults placeholder. Printer writes views to
// a terminal.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/samber/lo"
)

// NoResults is the text of an empty view.
const NoResults = "No analysis results available"

// Table is a header row plus data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// Section is a headed block of lines and an optional table.
type Section struct {
	Heading string
	Lines   []string
	Table   *Table
}

// View is the rendering of one result tab or panel.
type View struct {
	Title       string
	Sections    []Section
	Placeholder bool
}

// Placeholder is the view of a missing result.
func Placeholder(title string) View {
	return View{Title: title, Placeholder: true, Sections: []Section{{Lines: []string{NoResults}}}}
}

// placeholderIfEmpty swaps a view with nothing to show for the placeholder.
func (v View) placeholderIfEmpty() View {
	if len(v.Sections) == 0 {
		return Placeholder(v.Title)
	}
	return v
}

func (v *View) lines(heading string, lines ...string) {
	lines = lo.Filter(lines, func(l string, _ int) bool { return strings.TrimSpace(l) != "" })
	if len(lines) == 0 {
		return
	}
	v.Sections = append(v.Sections, Section{Heading: heading, Lines: lines})
}

func (v *View) table(heading string, header []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	v.Sections = append(v.Sections, Section{Heading: heading, Table: &Table{Header: header, Rows: rows}})
}

func (v *View) labels(labels []string) {
	if len(labels) > 0 {
		v.lines("Labels", strings.Join(labels, ", "))
	}
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func decimal(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func detectionRows(in []model.Detection) [][]string {
	return lo.Map(in, func(d model.Detection, _ int) []string {
		kind := d.Type
		if d.Symbol != "" {
			kind = d.Symbol
		}
		confidence := ""
		if d.Confidence > 0 {
			confidence = percent(d.Confidence)
		}
		return []string{d.Time, kind, d.Description, confidence}
	})
}

var detectionHeader = []string{"Time", "Type", "Description", "Confidence"}

// countRows orders counts by value descending, then by name.
func countRows(in map[string]int) [][]string {
	keys := lo.Keys(in)
	sort.Slice(keys, func(i, j int) bool {
		if in[keys[i]] != in[keys[j]] {
			return in[keys[i]] > in[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return lo.Map(keys, func(k string, _ int) []string { return []string{k, fmt.Sprint(in[k])} })
}

func measureRows(in map[string]float64) [][]string {
	keys := lo.Keys(in)
	sort.Strings(keys)
	return lo.Map(keys, func(k string, _ int) []string { return []string{k, decimal(in[k])} })
}

func emotionRows(in []model.EmotionScore) [][]string {
	return lo.Map(in, func(e model.EmotionScore, _ int) []string {
		return []string{e.Emotion, decimal(float64(e.Score))}
	})
}

func bullets(in []string) []string {
	return lo.Map(in, func(s string, _ int) string { return "- " + s })
}
