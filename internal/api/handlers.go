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

// Package api holds the gin handlers of the moderation dashboard backend:
//
//	POST /api/analyze-video          upload a video and run the selected capabilities
//	POST /api/admin-decision         record a moderator decision
//	GET  /api/get-analysis-history   list stored analyses, newest first
//	GET  /api/frame/:frameId         one frame of an analysed video as JPEG
//	GET  /api/video/:id/stream       playback URL of an analysed video
//	GET  /api/video/:id/file         the video itself, for stores without signed URLs
//	GET  /api/stats                  analysis and decision totals
//
// Failed requests answer with {"error": "..."}.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/services"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/workflow"
)

// NDJSONContentType marks a streamed analysis response.
const NDJSONContentType = "application/x-ndjson"

// AnalysisRunner runs the analysis workflow for one upload.
type AnalysisRunner interface {
	Run(ctx context.Context, upload *commands.Upload, settings model.AnalysisSettings, advanced model.AdvancedSettings, reporter cor.Reporter) (*workflow.Outcome, error)
}

// FrameSource cuts a single frame out of a stored video.
type FrameSource interface {
	ExtractFrame(ctx context.Context, video services.StoredVideo, frame int) ([]byte, error)
}

// Handlers wires the endpoints to their collaborators.
type Handlers struct {
	Runner       AnalysisRunner
	History      services.HistoryStore
	Decisions    *services.DecisionService
	Videos       services.VideoStore
	Frames       FrameSource
	HistoryLimit int           // default page size of the history endpoint
	StreamBuffer int           // fragments buffered per streamed analysis
	URLExpiry    time.Duration // lifetime of signed playback URLs
}

// Register adds every endpoint to r, which is normally the /api group.
func (h *Handlers) Register(r *gin.RouterGroup) {
	r.POST("/analyze-video", h.AnalyzeVideo)
	r.POST("/admin-decision", h.AdminDecision)
	r.GET("/get-analysis-history", h.AnalysisHistory)
	r.GET("/frame/:frameId", h.Frame)

	video := r.Group("/video")
	{
		video.GET("/:id/stream", h.VideoStream)
		video.GET("/:id/file", h.VideoFile)
	}

	Dashboard(r, h.History)
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, model.ErrorResponse{Error: message})
}

func (h *Handlers) urlExpiry() time.Duration {
	if h.URLExpiry <= 0 {
		return 15 * time.Minute
	}
	return h.URLExpiry
}

