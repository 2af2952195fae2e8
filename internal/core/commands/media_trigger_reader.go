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
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-video-moderation/internal/cloud"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-moderation/internal/core/services"
)

// MediaTriggerToVideo parses a Cloud Storage object notification and places
// the object on the context as a stored video. Notifications for objects that
// are not videos are acknowledged without output so the rest of the chain is
// skipped.
type MediaTriggerToVideo struct {
	cor.BaseCommand
}

// NewMediaTriggerToVideo returns the command reading bucket notifications.
func NewMediaTriggerToVideo(name string) *MediaTriggerToVideo {
	return &MediaTriggerToVideo{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute decodes the notification in the input parameter. Objects that are
// not videos are skipped without error.
func (c *MediaTriggerToVideo) Execute(context cor.Context) {
	in, ok := context.Get(c.GetInputParam()).(string)
	if !ok {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("expected notification payload, got %T", context.Get(c.GetInputParam())))
		return
	}

	var out cloud.GCSPubSubNotification
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal GCS notification: %w", err))
		return
	}

	if !strings.HasPrefix(out.ContentType, "video/") {
		slog.InfoContext(context.GetContext(), "ignoring non-video object", "bucket", out.Bucket, "name", out.Name, "content_type", out.ContentType)
		return
	}

	obj := &cloud.GCSObject{Bucket: out.Bucket, Name: out.Name, MIMEType: out.ContentType}
	video := services.StoredVideo{
		ID:       out.Generation,
		Name:     obj.BaseName(),
		URI:      obj.URI(),
		MIMEType: obj.MIMEType,
	}
	if size, err := strconv.ParseInt(out.Size, 10, 64); err == nil {
		video.Size = size
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cloud.GCSObjectKey, obj)
	context.Add(VideoKey, video)
	context.Add(c.GetOutputParam(), video)
}
