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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/services"
)

// record loads the analysis named by id, answering 404 when it is unknown.
func (h *Handlers) record(c *gin.Context, id string) (*services.AnalysisRecord, bool) {
	record, err := h.History.Get(c.Request.Context(), id)
	if errors.Is(err, services.ErrNotFound) {
		abort(c, http.StatusNotFound, fmt.Sprintf("Analysis %s not found", id))
		return nil, false
	}
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to load analysis", "id", id, "error", err)
		abort(c, http.StatusInternalServerError, "Failed to load analysis")
		return nil, false
	}
	return record, true
}

// Frame returns frame :frameId (zero based) of the video analysed by
// ?analysis=ID as a JPEG.
func (h *Handlers) Frame(c *gin.Context) {
	frame, err := strconv.Atoi(c.Param("frameId"))
	if err != nil || frame < 0 {
		abort(c, http.StatusBadRequest, "frameId must be a non-negative integer")
		return
	}
	id := c.Query("analysis")
	if id == "" {
		abort(c, http.StatusBadRequest, "analysis query parameter is required")
		return
	}
	record, ok := h.record(c, id)
	if !ok {
		return
	}

	image, err := h.Frames.ExtractFrame(c.Request.Context(), record.Video, frame)
	if errors.Is(err, services.ErrFrameOutOfRange) {
		abort(c, http.StatusNotFound, fmt.Sprintf("Frame %d not found", frame))
		return
	}
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "frame extraction failed", "id", id, "frame", frame, "error", err)
		abort(c, http.StatusInternalServerError, "Could not extract frame")
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "image/jpeg", image)
}

// VideoStream returns {"url"} for playing the analysed video. Cloud Storage
// videos get a signed URL; other stores are served by VideoFile.
func (h *Handlers) VideoStream(c *gin.Context) {
	id := c.Param("id")
	record, ok := h.record(c, id)
	if !ok {
		return
	}
	url, err := h.Videos.SignedURL(c.Request.Context(), record.Video, h.urlExpiry())
	if errors.Is(err, services.ErrSigningUnsupported) {
		c.JSON(http.StatusOK, gin.H{"url": fmt.Sprintf("/api/video/%s/file", id)})
		return
	}
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to sign playback url", "id", id, "error", err)
		abort(c, http.StatusInternalServerError, "Could not generate streaming URL")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// VideoFile streams the stored video bytes.
func (h *Handlers) VideoFile(c *gin.Context) {
	record, ok := h.record(c, c.Param("id"))
	if !ok {
		return
	}
	rc, err := h.Videos.Open(c.Request.Context(), record.Video)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to open video", "id", record.ID, "error", err)
		abort(c, http.StatusNotFound, "Video not available")
		return
	}
	defer rc.Close()
	size := record.Video.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, record.Video.MIMEType, rc, nil)
}
