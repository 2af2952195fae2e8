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
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jaycherian/gcp-go-video-moderation/internal/client"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/jaycherian/gcp-go-video-moderation/internal/render"
	"github.com/samber/lo"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"analyze", "upload a video and print the analysis as it arrives", runAnalyze},
	{"history", "list stored analyses", runHistory},
	{"show", "print the result tabs of a stored analysis", runShow},
	{"decide", "record an admin decision for a stored analysis", runDecide},
	{"frame", "download one frame of an analysed video", runFrame},
	{"play", "print a playback URL for an analysed video", runPlay},
	{"stats", "print moderation totals", runStats},
}

func lookup(name string) (command, bool) {
	return lo.Find(commands, func(c command) bool { return c.name == name })
}

var errUsage = errors.New("missing analysis id")

// parseToggles switches on every capability named in a comma separated list.
// "all" selects everything.
func parseToggles(list string, t *model.Toggles) error {
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		switch name {
		case "":
			continue
		case "all":
			t.SetAll(true)
		default:
			if err := t.SetKey(name, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// progressPrinter prints the log lines and progress changes of a running
// analysis exactly once each.
type progressPrinter struct {
	a        *app
	logs     int
	progress float64
}

func (p *progressPrinter) update(s client.Session) {
	for _, line := range s.Logs[min(p.logs, len(s.Logs)):] {
		fmt.Fprintln(p.a.out, "  "+line)
	}
	p.logs = len(s.Logs)
	if s.Progress != p.progress {
		p.progress = s.Progress
		fmt.Fprintln(p.a.out, render.Bar(s.Progress))
	}
}

func runAnalyze(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(a.out)
	selected := fs.String("settings", "all", "comma separated capabilities to run")
	advancedList := fs.String("advanced", "", "comma separated capabilities to run with the advanced model")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("analyze takes exactly one video file")
	}

	var settings model.AnalysisSettings
	if err := parseToggles(*selected, &settings.Toggles); err != nil {
		return err
	}
	var advanced model.AdvancedSettings
	if err := parseToggles(*advancedList, &advanced.Toggles); err != nil {
		return err
	}

	video, file, err := client.OpenVideo(fs.Arg(0))
	if err != nil {
		return err
	}
	defer file.Close()

	printer := &progressPrinter{a: a}
	c := a.client(client.WithUpdateHandler(printer.update))
	if err := a.printer.Print(render.View{Title: render.ProgressTitle}); err != nil {
		return err
	}
	session, err := c.Analyze(ctx, video, settings, advanced)
	if err != nil {
		return err
	}

	if err := a.printer.PrintAll(render.Tabs(session.Results)); err != nil {
		return err
	}
	if err := a.printer.Print(render.AdminPanel(session.Results)); err != nil {
		return err
	}
	if session.AnalysisID != "" {
		fmt.Fprintln(a.out, "Analysis ID:", session.AnalysisID)
	}
	return nil
}

func runHistory(ctx context.Context, a *app, args []string) error {
	items, err := a.client().FetchHistory(ctx)
	if err != nil {
		return err
	}
	return a.printer.Print(render.History(items))
}

func runShow(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(a.out)
	tab := fs.String("tab", "", "only print this capability, e.g. symbols")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	item, err := a.client().FindAnalysis(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\n\n", item.VideoName, item.ID)
	if *tab != "" {
		c, err := model.ParseCapability(*tab)
		if err != nil {
			return err
		}
		return a.printer.Print(render.Capability(c, item.Analysis))
	}
	if err := a.printer.PrintAll(render.Tabs(item.Analysis)); err != nil {
		return err
	}
	return a.printer.Print(render.AdminPanel(item.Analysis))
}

type decisionFlags struct {
	label      string
	ad         int
	level      string
	copyright  string
	prohibited string
	suggest    bool
}

func parseBoolFlag(name, value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid -%s value %q", name, value)
}

// apply starts from the recorded decision (or the defaults), optionally lays
// the analysis suggestions over it, then the explicit flags.
func (f decisionFlags) apply(results model.Results) (model.AdminDecision, error) {
	d := model.NewAdminDecision()
	if current, err := results.AdminDecision(); err == nil && current != nil {
		d = *current
	}
	if f.suggest {
		d = d.WithSuggestions(results)
	}
	if f.label != "" {
		label, err := model.ParseContentLabel(f.label)
		if err != nil {
			return d, err
		}
		d.ContentLabel = label
	}
	if f.level != "" {
		level, err := model.ParseRecommendationLevel(f.level)
		if err != nil {
			return d, err
		}
		d.RecommendationLevel = level
	}
	if f.ad >= 0 {
		d.AdSuitability = f.ad
	}
	if f.copyright != "" {
		v, err := parseBoolFlag("copyright", f.copyright)
		if err != nil {
			return d, err
		}
		d.CopyrightViolation = v
	}
	if f.prohibited != "" {
		v, err := parseBoolFlag("prohibited", f.prohibited)
		if err != nil {
			return d, err
		}
		d.ProhibitedContent = v
	}
	return d, d.Validate()
}

func runDecide(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("decide", flag.ContinueOnError)
	fs.SetOutput(a.out)
	var f decisionFlags
	fs.StringVar(&f.label, "label", "", "content label: white, gray, black or 18+")
	fs.IntVar(&f.ad, "ad", -1, "ad suitability 0-100")
	fs.StringVar(&f.level, "level", "", "recommendation level, e.g. \"Not Recommended\"")
	fs.StringVar(&f.copyright, "copyright", "", "copyright violation: yes or no")
	fs.StringVar(&f.prohibited, "prohibited", "", "prohibited content: yes or no")
	fs.BoolVar(&f.suggest, "suggest", false, "start from the values suggested by the analysis")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}

	c := a.client()
	item, err := c.FindAnalysis(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	decision, err := f.apply(item.Analysis)
	if err != nil {
		return err
	}
	merged, err := c.SubmitDecision(ctx, item.ID, item.Analysis, decision)
	if err != nil {
		return err
	}
	return a.printer.Print(render.AdminPanel(merged))
}

func runFrame(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("frame", flag.ContinueOnError)
	fs.SetOutput(a.out)
	frame := fs.Int("n", 0, "frame number")
	out := fs.String("o", "", "output file; defaults to frame-<n>.jpg")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	data, err := a.client().FetchFrame(ctx, *frame, fs.Arg(0))
	if err != nil {
		return err
	}
	name := *out
	if name == "" {
		name = fmt.Sprintf("frame-%d.jpg", *frame)
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Wrote %s (%d bytes)\n", name, len(data))
	return nil
}

func runPlay(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	u, err := a.client().StreamURL(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, u)
	return nil
}

func runStats(ctx context.Context, a *app, _ []string) error {
	stats, err := a.client().Stats(ctx)
	if err != nil {
		return err
	}
	return a.printer.Print(render.Stats(stats))
}
