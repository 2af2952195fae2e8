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
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/services"
)

// AdminDecision records a moderator decision. The body is an AdminDecision
// with an optional analysisId naming the analysis it applies to.
func (h *Handlers) AdminDecision(c *gin.Context) {
	var req model.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, fmt.Sprintf("Invalid decision: %v", err))
		return
	}

	record, err := h.Decisions.Record(c.Request.Context(), req)
	switch {
	case errors.Is(err, model.ErrInvalidDecision):
		abort(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, services.ErrNotFound):
		abort(c, http.StatusNotFound, fmt.Sprintf("Analysis %s not found", req.AnalysisID))
		return
	case err != nil:
		slog.ErrorContext(c.Request.Context(), "failed to record decision", "analysisId", req.AnalysisID, "error", err)
		abort(c, http.StatusInternalServerError, "Failed to record decision")
		return
	}
	c.JSON(http.StatusOK, record)
}

// AnalysisHistory lists stored analyses, newest first. ?limit=N overrides the
// configured page size.
func (h *Handlers) AnalysisHistory(c *gin.Context) {
	limit := h.HistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			abort(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.History.List(c.Request.Context(), limit)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to list history", "error", err)
		abort(c, http.StatusInternalServerError, "Failed to load analysis history")
		return
	}
	out := model.HistoryResponse{History: make([]model.HistoryItem, 0, len(records))}
	for _, r := range records {
		out.History = append(out.History, r.Item())
	}
	c.JSON(http.StatusOK, out)
}
