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

// Command moderator is the terminal dashboard of the video moderation server.
//
//	moderator analyze [-settings summary,audio_analysis] [-advanced transcription] clip.mp4
//	moderator history
//	moderator show [-tab symbols] <analysis-id>
//	moderator decide [-label gray] [-ad 40] [-level Neutral] [-suggest] <analysis-id>
//	moderator frame -n 120 -o frame.jpg <analysis-id>
//	moderator play <analysis-id>
//	moderator stats
//
// Connection settings come from the [dashboard] section of the TOML
// configuration and can be overridden with MODERATOR_BASE_URL,
// MODERATOR_TRANSPORT, MODERATOR_TIMEOUT_SECONDS and MODERATOR_COLOR.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/jaycherian/gcp-go-video-moderation/internal/client"
	"github.com/jaycherian/gcp-go-video-moderation/internal/cloud"
	"github.com/jaycherian/gcp-go-video-moderation/internal/render"
	"github.com/jaycherian/gcp-go-video-moderation/internal/telemetry"
)

const envPrefix = "MODERATOR"

// loadDashboard reads [dashboard] from the TOML files, then applies
// MODERATOR_* overrides.
func loadDashboard() (cloud.Dashboard, error) {
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return cloud.Dashboard{}, err
	}
	dashboard := config.Dashboard
	if err := envconfig.Process(envPrefix, &dashboard); err != nil {
		return cloud.Dashboard{}, fmt.Errorf("failed to read %s_* environment: %w", envPrefix, err)
	}
	switch client.Transport(dashboard.Transport) {
	case client.TransportStream, client.TransportBuffered:
	default:
		return cloud.Dashboard{}, fmt.Errorf("unknown transport %q", dashboard.Transport)
	}
	return dashboard, nil
}

type app struct {
	dashboard cloud.Dashboard
	out       io.Writer
	printer   *render.Printer
}

func newApp(dashboard cloud.Dashboard, out io.Writer) *app {
	return &app{dashboard: dashboard, out: out, printer: render.NewPrinter(out, dashboard.Color)}
}

func (a *app) client(opts ...client.Option) *client.Client {
	base := []client.Option{client.WithTransport(client.Transport(a.dashboard.Transport))}
	if a.dashboard.TimeoutSeconds > 0 {
		base = append(base, client.WithTimeout(time.Duration(a.dashboard.TimeoutSeconds)*time.Second))
	}
	return client.New(a.dashboard.BaseURL, append(base, opts...)...)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: moderator <command> [flags] [args]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
}

func main() {
	telemetry.SetupLogging(telemetry.LoggingOptions{Writer: os.Stderr, Text: true, Level: slog.LevelWarn})

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd, ok := lookup(os.Args[1])
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}

	dashboard, err := loadDashboard()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, newApp(dashboard, os.Stdout), os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
