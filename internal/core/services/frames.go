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

package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrFrameOutOfRange is returned when the video has no frame with the requested index.
var ErrFrameOutOfRange = errors.New("frame index out of range")

// FrameExtractor cuts single frames out of stored videos with ffmpeg.
type FrameExtractor struct {
	CommandPath string // ffmpeg executable, e.g. "/usr/bin/ffmpeg".
	Store       VideoStore
}

func frameArgs(path string, frame int) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-vf", fmt.Sprintf("select=eq(n\\,%d)", frame),
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"pipe:1",
	}
}

// ExtractFrame returns frame number frame (zero based) of the video as a JPEG.
func (f *FrameExtractor) ExtractFrame(ctx context.Context, video StoredVideo, frame int) ([]byte, error) {
	if frame < 0 {
		return nil, ErrFrameOutOfRange
	}
	path, cleanup, err := f.Store.LocalFile(ctx, video)
	if err != nil {
		return nil, fmt.Errorf("failed to materialise %s: %w", video.URI, err)
	}
	defer cleanup()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.CommandPath, frameArgs(path, frame)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("error running ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, ErrFrameOutOfRange
	}
	return stdout.Bytes(), nil
}
