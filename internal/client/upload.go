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
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-json"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/model"
)

// Multipart field names of the analysis request.
const (
	FieldVideo            = "video"
	FieldSettings         = "settings"
	FieldAdvancedSettings = "advanced_settings"
)

// sniffLength is how much of the video is read to detect its content type.
const sniffLength = 3072

// Video is a video selected for analysis.
type Video struct {
	Name    string
	Content io.Reader
}

// OpenVideo opens a file for analysis. The caller closes the returned file.
func OpenVideo(path string) (*Video, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return &Video{Name: filepath.Base(path), Content: f}, f, nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}

// upload streams a multipart body holding the video and both settings
// objects. The body is produced while it is sent, so the video is never held
// in memory. It returns the body and its content type.
func upload(video *Video, settings model.AnalysisSettings, advanced model.AdvancedSettings) (io.ReadCloser, string, error) {
	head := make([]byte, sniffLength)
	n, err := io.ReadFull(video.Content, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, "", fmt.Errorf("failed to read %s: %w", video.Name, err)
	}
	head = head[:n]
	contentType := mimetype.Detect(head).String()

	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, "", err
	}
	advancedJSON, err := json.Marshal(advanced)
	if err != nil {
		return nil, "", err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeParts(mw, video.Name, contentType, io.MultiReader(bytes.NewReader(head), video.Content), settingsJSON, advancedJSON)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()
	return pr, mw.FormDataContentType(), nil
}

func writeParts(mw *multipart.Writer, name, contentType string, content io.Reader, settings, advanced []byte) error {
	if err := mw.WriteField(FieldSettings, string(settings)); err != nil {
		return err
	}
	if err := mw.WriteField(FieldAdvancedSettings, string(advanced)); err != nil {
		return err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FieldVideo, escapeQuotes(name)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, content)
	return err
}
