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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-moderation/internal/cloud"
)

// StoredVideo identifies an uploaded video.
type StoredVideo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`     // Original file name.
	URI      string `json:"uri"`      // Absolute path (local) or gs:// URI.
	MIMEType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// IsGCS reports whether the video lives in Cloud Storage.
func (v StoredVideo) IsGCS() bool {
	return strings.HasPrefix(v.URI, "gs://")
}

// ErrSigningUnsupported is returned by stores that cannot produce playback URLs.
var ErrSigningUnsupported = errors.New("signed urls are not supported by this store")

// VideoStore keeps uploaded videos.
type VideoStore interface {
	Save(ctx context.Context, name string, mimeType string, content io.Reader) (StoredVideo, error)
	Open(ctx context.Context, video StoredVideo) (io.ReadCloser, error)
	// LocalFile returns a path readable by external tools, plus a cleanup
	// function that must be called once the path is no longer needed.
	LocalFile(ctx context.Context, video StoredVideo) (path string, cleanup func(), err error)
	SignedURL(ctx context.Context, video StoredVideo, expires time.Duration) (string, error)
}

func objectName(prefix, id, name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "video"
	}
	return strings.TrimPrefix(prefix+"/"+id+"-"+base, "/")
}

// LocalVideoStore keeps videos in a directory.
type LocalVideoStore struct {
	Dir string
}

// NewLocalVideoStore stores videos under dir, creating it if needed.
func NewLocalVideoStore(dir string) (*LocalVideoStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create video directory %s: %w", abs, err)
	}
	return &LocalVideoStore{Dir: abs}, nil
}

func (s *LocalVideoStore) Save(_ context.Context, name string, mimeType string, content io.Reader) (StoredVideo, error) {
	id := uuid.NewString()
	path := filepath.Join(s.Dir, objectName("", id, name))
	f, err := os.Create(path)
	if err != nil {
		return StoredVideo{}, fmt.Errorf("failed to create %s: %w", path, err)
	}
	written, err := io.Copy(f, content)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return StoredVideo{}, fmt.Errorf("failed to write %s after %d bytes: %w", path, written, err)
	}
	return StoredVideo{ID: id, Name: name, URI: path, MIMEType: mimeType, Size: written}, nil
}

func (s *LocalVideoStore) Open(_ context.Context, video StoredVideo) (io.ReadCloser, error) {
	return os.Open(video.URI)
}

func (s *LocalVideoStore) LocalFile(_ context.Context, video StoredVideo) (string, func(), error) {
	if _, err := os.Stat(video.URI); err != nil {
		return "", func() {}, err
	}
	return video.URI, func() {}, nil
}

// SignedURL always returns ErrSigningUnsupported; local files are served by
// the API instead.
func (s *LocalVideoStore) SignedURL(context.Context, StoredVideo, time.Duration) (string, error) {
	return "", ErrSigningUnsupported
}

// GCSVideoStore keeps videos in a bucket. Playback URLs are V4 signed URLs
// signed through the IAM credentials API, so no private key is needed locally.
type GCSVideoStore struct {
	Client      *storage.Client
	IAMClient   *credentials.IamCredentialsClient
	Bucket      string
	Prefix      string
	SignerEmail string
}

// Save uploads content under a fresh object name.
func (s *GCSVideoStore) Save(ctx context.Context, name string, mimeType string, content io.Reader) (StoredVideo, error) {
	id := uuid.NewString()
	obj := s.Client.Bucket(s.Bucket).Object(objectName(s.Prefix, id, name))

	writer := obj.NewWriter(ctx)
	writer.ContentType = mimeType
	written, err := io.Copy(writer, content)
	if err != nil {
		_ = writer.Close()
		return StoredVideo{}, fmt.Errorf("failed to copy to gs://%s/%s after %d bytes: %w", s.Bucket, obj.ObjectName(), written, err)
	}
	if err := writer.Close(); err != nil {
		return StoredVideo{}, fmt.Errorf("failed to finalise gs://%s/%s: %w", s.Bucket, obj.ObjectName(), err)
	}
	slog.InfoContext(ctx, "uploaded video", "bucket", s.Bucket, "object", obj.ObjectName(), "bytes", written)
	return StoredVideo{
		ID:       id,
		Name:     name,
		URI:      cloud.GCSObject{Bucket: s.Bucket, Name: obj.ObjectName()}.URI(),
		MIMEType: mimeType,
		Size:     written,
	}, nil
}

func (s *GCSVideoStore) object(video StoredVideo) (*storage.ObjectHandle, cloud.GCSObject, error) {
	ref, err := cloud.ParseGCSURI(video.URI)
	if err != nil {
		return nil, ref, err
	}
	return s.Client.Bucket(ref.Bucket).Object(ref.Name), ref, nil
}

func (s *GCSVideoStore) Open(ctx context.Context, video StoredVideo) (io.ReadCloser, error) {
	obj, ref, err := s.object(video)
	if err != nil {
		return nil, err
	}
	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS reader for %s: %w", ref.URI(), err)
	}
	return reader, nil
}

// LocalFile downloads the object into a temporary file.
func (s *GCSVideoStore) LocalFile(ctx context.Context, video StoredVideo) (string, func(), error) {
	reader, err := s.Open(ctx, video)
	if err != nil {
		return "", func() {}, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			slog.WarnContext(ctx, "failed to close GCS reader", "error", err)
		}
	}()

	tempFile, err := os.CreateTemp("", "moderation-video-")
	if err != nil {
		return "", func() {}, fmt.Errorf("could not create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(tempFile.Name()) }
	written, err := io.Copy(tempFile, reader)
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("failed to download %s after %d bytes: %w", video.URI, written, err)
	}
	return tempFile.Name(), cleanup, nil
}

// SignedURL returns a V4 GET URL signed through the IAM credentials API.
func (s *GCSVideoStore) SignedURL(ctx context.Context, video StoredVideo, expires time.Duration) (string, error) {
	_, ref, err := s.object(video)
	if err != nil {
		return "", err
	}
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(expires),
		GoogleAccessID: s.SignerEmail,
		SignBytes: func(b []byte) ([]byte, error) {
			resp, err := s.IAMClient.SignBlob(ctx, &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			})
			if err != nil {
				return nil, err
			}
			return resp.SignedBlob, nil
		},
	}
	u, err := s.Client.Bucket(ref.Bucket).SignedURL(ref.Name, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", ref.Bucket, ref.Name, err)
	}
	return u, nil
}
