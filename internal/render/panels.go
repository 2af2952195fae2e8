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

package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-video-moderation/internal/client"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/samber/lo"
)

const (
	AdminTitle    = "Admin Decision"
	HistoryTitle  = "Analysis History"
	ProgressTitle = "Analyzing Video"
	StatsTitle    = "Moderation Stats"
)

// AdminPanel shows the decision recorded in results, or the defaults when
// there is none, next to what the analysis suggests.
func AdminPanel(results model.Results) View {
	v := View{Title: AdminTitle}
	current, err := results.AdminDecision()
	recorded := err == nil && current != nil
	if !recorded {
		d := model.NewAdminDecision()
		current = &d
	}
	heading := "Current decision"
	if !recorded {
		heading = "Current decision (not recorded)"
	}
	v.table(heading, []string{"Field", "Value"}, decisionRows(*current))
	suggested := current.WithSuggestions(results)
	v.table("Suggested", []string{"Field", "Value"}, decisionRows(suggested))
	return v
}

func decisionRows(d model.AdminDecision) [][]string {
	return [][]string{
		{"Content label", string(d.ContentLabel)},
		{"Ad suitability", fmt.Sprintf("%d%%", d.AdSuitability)},
		{"Copyright violation", yesNo(d.CopyrightViolation)},
		{"Prohibited content", yesNo(d.ProhibitedContent)},
		{"Recommendation", string(d.RecommendationLevel)},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// History lists stored analyses, newest first.
func History(items []model.HistoryItem) View {
	if len(items) == 0 {
		return View{Title: HistoryTitle, Placeholder: true, Sections: []Section{{Lines: []string{"No analyses recorded yet"}}}}
	}
	sorted := append([]model.HistoryItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	v := View{Title: HistoryTitle}
	v.table("", []string{"ID", "Video", "Created", "Capabilities", "Decision"}, lo.Map(sorted, func(h model.HistoryItem, _ int) []string {
		caps := lo.FilterMap(model.AllCapabilities(), func(c model.Capability, _ int) (string, bool) {
			return c.Title(), h.Analysis.Has(c.ResultKey())
		})
		decision := "pending"
		if d, err := h.Analysis.AdminDecision(); err == nil && d != nil {
			decision = string(d.ContentLabel)
			if d.RecommendationLevel != "" {
				decision += " / " + string(d.RecommendationLevel)
			}
		}
		return []string{h.ID, h.VideoName, h.CreatedAt.Local().Format(time.DateTime), strings.Join(caps, ", "), decision}
	}))
	return v
}

const barWidth = 30

// Bar draws progress as a fixed width bar.
func Bar(progress float64) string {
	p := lo.Clamp(progress, 0, 100)
	filled := int(p / 100 * barWidth)
	return fmt.Sprintf("[%s%s] %3.0f%%", strings.Repeat("#", filled), strings.Repeat("-", barWidth-filled), p)
}

// Progress renders the progress dialog of a running or finished analysis.
func Progress(s client.Session) View {
	v := View{Title: ProgressTitle}
	status := []string{"State: " + s.State.String(), Bar(s.Progress)}
	if s.AnalysisID != "" {
		status = append(status, "Analysis: "+s.AnalysisID)
	}
	if s.Err != nil {
		status = append(status, "Error: "+s.Err.Error())
	}
	v.lines("", status...)
	v.lines("Log", s.Logs...)
	return v
}

// Stats renders the moderation counters.
func Stats(s model.Stats) View {
	v := View{Title: StatsTitle}
	v.lines("",
		fmt.Sprintf("Analyses: %d", s.Analyses),
		fmt.Sprintf("Decisions: %d", s.Decisions),
		fmt.Sprintf("Pending: %d", s.Pending))
	v.table("By content label", []string{"Label", "Count"}, countRows(s.ByContentLabel))
	return v
}
