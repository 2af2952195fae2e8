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

package commands

import (
	"fmt"

	"github.com/jaycherian/gcp-go-video-moderation/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/services"
)

// VideoUpload stores the uploaded video so the analyzers, the frame endpoint
// and the playback endpoint can reach it later.
type VideoUpload struct {
	cor.BaseCommand
	store services.VideoStore
}

// NewVideoUpload stores uploads in store.
func NewVideoUpload(name string, store services.VideoStore) *VideoUpload {
	out := &VideoUpload{BaseCommand: *cor.NewBaseCommand(name), store: store}
	out.InputParamName = UploadKey
	return out
}

func (v *VideoUpload) Execute(context cor.Context) {
	upload, ok := context.Get(v.GetInputParam()).(*Upload)
	if !ok || upload.Content == nil {
		v.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(v.GetName(), fmt.Errorf("no video upload on context"))
		return
	}

	reporter := context.GetReporter()
	reporter.Log(context.GetContext(), fmt.Sprintf("Uploading %s", upload.Name))

	video, err := v.store.Save(context.GetContext(), upload.Name, upload.MIMEType, upload.Content)
	if err != nil {
		v.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(v.GetName(), fmt.Errorf("failed to store %s: %w", upload.Name, err))
		return
	}

	v.GetSuccessCounter().Add(context.GetContext(), 1)
	reporter.Log(context.GetContext(), fmt.Sprintf("Stored %s (%d bytes)", video.Name, video.Size))
	reporter.Progress(context.GetContext(), ProgressStored)
	context.Add(VideoKey, video)
	context.Add(v.GetOutputParam(), video)
}
