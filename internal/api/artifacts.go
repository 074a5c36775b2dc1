package api

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"vidpipe/internal/queue"
)

var (
	// ErrArtifactNotFound means no live job owns the requested file.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrArtifactExpired means the owning job outlived its TTL and awaits the sweeper.
	ErrArtifactExpired = errors.New("artifact expired")
)

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".gif":  "image/gif",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".m3u8": "application/vnd.apple.mpegurl",
	".ts":   "video/mp2t",
}

// ContentType maps an artifact file name to the media type served for it.
func ContentType(fileName string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ResolveArtifact finds the completed job owning fileName. The longest owning
// id wins.
func (s *JobService) ResolveArtifact(ctx context.Context, fileName string, now time.Time) (*queue.Job, error) {
	if s == nil || s.store == nil {
		return nil, ErrArtifactNotFound
	}
	if !validFileName(fileName) {
		return nil, ErrArtifactNotFound
	}
	for _, candidate := range queue.OwnerCandidates(fileName) {
		job, err := s.store.GetJob(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if job == nil || !queue.OwnedBy(fileName, job.ID) {
			continue
		}
		if job.Status != queue.StatusCompleted {
			return nil, ErrArtifactNotFound
		}
		if job.IsExpired(now) {
			return job, ErrArtifactExpired
		}
		return job, nil
	}
	return nil, ErrArtifactNotFound
}

func validFileName(name string) bool {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
