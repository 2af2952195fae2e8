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

package client

import (
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
)

var (
	// ErrAnalysisInFlight is returned by Analyze while another analysis of the
	// same client is outstanding. No request is made.
	ErrAnalysisInFlight = errors.New("an analysis is already in progress")
	// ErrNoVideo is returned by Analyze when no video was selected.
	ErrNoVideo = errors.New("no video selected")
)

// History endpoint failures with a dedicated message.
const (
	MessageHistoryNotFound  = "Analysis history not found. The server might be misconfigured or the endpoint does not exist."
	MessageHistoryForbidden = "Access forbidden. You might not have the necessary permissions to view the analysis history."
	MessageHistoryServer    = "Internal server error. Please try again later or contact support if the problem persists."
	MessageHistoryFormat    = "Invalid data format received from server. Expected an array of analysis history items."
)

// HTTPError is a non-2xx answer from the server.
type HTTPError struct {
	StatusCode    int
	ServerMessage string // the "error" field of the body, when present
	Message       string // replaces the default text when set
}

// Error reports the status code and the server message, if any.
func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	out := fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
	if e.ServerMessage != "" {
		out += " (" + e.ServerMessage + ")"
	}
	return out
}

// newHTTPError reads at most 64KiB of body looking for {"error": "..."}.
func newHTTPError(status int, body io.Reader) *HTTPError {
	out := &HTTPError{StatusCode: status}
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(data) == 0 {
		return out
	}
	var payload model.ErrorResponse
	if json.Unmarshal(data, &payload) == nil {
		out.ServerMessage = payload.Error
	}
	return out
}

// historyError maps history endpoint statuses to their messages.
func historyError(status int) *HTTPError {
	out := &HTTPError{StatusCode: status}
	switch status {
	case 404:
		out.Message = MessageHistoryNotFound
	case 403:
		out.Message = MessageHistoryForbidden
	case 500:
		out.Message = MessageHistoryServer
	default:
		out.Message = fmt.Sprintf("HTTP error! status: %d", status)
	}
	return out
}
