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

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
)

// Multipart field names of POST /api/analyze-video.
const (
	FieldVideo            = "video"
	FieldSettings         = "settings"
	FieldAdvancedSettings = "advanced_settings"
)

// sniffLength is the number of leading bytes filetype needs to match.
const sniffLength = 261

// AnalyzeVideo stores the uploaded video and runs the selected capabilities.
// Clients that accept application/x-ndjson receive progress, log lines and
// partial results as they are produced; others get a single
// {"results", "analysisId"} document once the analysis is done.
func (h *Handlers) AnalyzeVideo(c *gin.Context) {
	header, err := c.FormFile(FieldVideo)
	if err != nil {
		abort(c, http.StatusBadRequest, "No video file provided")
		return
	}

	settings, err := parseSettings(c.PostForm(FieldSettings))
	if err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	var advanced model.AdvancedSettings
	if raw := strings.TrimSpace(c.PostForm(FieldAdvancedSettings)); raw != "" {
		if err := json.Unmarshal([]byte(raw), &advanced); err != nil {
			abort(c, http.StatusBadRequest, fmt.Sprintf("Invalid advanced settings: %v", err))
			return
		}
	}

	file, err := header.Open()
	if err != nil {
		abort(c, http.StatusBadRequest, fmt.Sprintf("Unreadable video upload: %v", err))
		return
	}
	defer file.Close()

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		abort(c, http.StatusBadRequest, fmt.Sprintf("Unreadable video upload: %v", err))
		return
	}
	head = head[:n]
	if !filetype.IsVideo(head) {
		abort(c, http.StatusUnsupportedMediaType, "Uploaded file is not a video")
		return
	}
	kind, _ := filetype.Match(head)

	upload := &commands.Upload{
		Name:     header.Filename,
		MIMEType: kind.MIME.Value,
		Content:  io.MultiReader(bytes.NewReader(head), file),
	}
	slog.InfoContext(c.Request.Context(), "analysis requested",
		"video", upload.Name, "mime", upload.MIMEType, "size", header.Size,
		"capabilities", settings.Selected(), "advanced", advanced.Selected())

	if strings.Contains(c.GetHeader("Accept"), NDJSONContentType) {
		h.streamAnalysis(c, upload, settings, advanced)
		return
	}

	outcome, err := h.Runner.Run(c.Request.Context(), upload, settings, advanced, nil)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "analysis failed", "video", upload.Name, "error", err)
		abort(c, http.StatusInternalServerError, analysisError(err))
		return
	}
	c.JSON(http.StatusOK, model.AnalyzeResponse{Results: outcome.Results, AnalysisID: outcome.AnalysisID})
}

// parseSettings decodes the settings field. An empty field selects every
// capability.
func parseSettings(raw string) (model.AnalysisSettings, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.AllAnalysisSettings(), nil
	}
	var settings model.AnalysisSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return settings, fmt.Errorf("Invalid settings: %v", err)
	}
	if !settings.AnySelected() {
		return settings, errors.New("No analysis capability selected")
	}
	return settings, nil
}

func analysisError(err error) string {
	return "An error occurred during video analysis: " + err.Error()
}

func (h *Handlers) streamAnalysis(c *gin.Context, upload *commands.Upload, settings model.AnalysisSettings, advanced model.AdvancedSettings) {
	ctx := c.Request.Context()
	buffer := h.StreamBuffer
	if buffer < 1 {
		buffer = 1
	}
	events := make(chan model.StreamEvent, buffer)
	reporter := &channelReporter{done: ctx.Done(), events: events}

	go func() {
		defer close(events)
		outcome, err := h.Runner.Run(ctx, upload, settings, advanced, reporter)
		if err != nil {
			slog.ErrorContext(ctx, "streamed analysis failed", "video", upload.Name, "error", err)
			reporter.send(model.StreamEvent{Error: analysisError(err)})
			return
		}
		done := commands.ProgressDone
		reporter.send(model.StreamEvent{Progress: &done, Results: outcome.Results, AnalysisID: outcome.AnalysisID})
	}()

	c.Header("Content-Type", NDJSONContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	// Keep draining after a write failure so the workflow never blocks on a
	// full buffer while it winds down.
	broken := false
	for ev := range events {
		if broken {
			continue
		}
		if err := writeEvent(c.Writer, ev); err != nil {
			slog.WarnContext(ctx, "failed to write stream fragment", "error", err)
			broken = true
			continue
		}
		c.Writer.Flush()
	}
}

func writeEvent(w io.Writer, ev model.StreamEvent) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = w.Write(append(line, '\n'))
	return err
}
