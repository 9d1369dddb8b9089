// Package media uploads protocol photos to blob storage with bounded
// exponential-backoff retries and per-image progress events.
package media

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BlobStore is the storage surface the uploader needs.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	PublicURL(ctx context.Context, path string) (string, error)
}

// Config bounds the retry loop.
type Config struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration // 0 disables the per-attempt deadline
}

// DefaultConfig: three attempts, waiting 1s then 2s.
var DefaultConfig = Config{MaxAttempts: 3, BaseDelay: time.Second}

// Uploader pushes decoded images to a BlobStore.
type Uploader struct {
	blobs  BlobStore
	cfg    Config
	logger *zap.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewUploader fills zero config values from DefaultConfig.
func NewUploader(blobs BlobStore, cfg Config, logger *zap.Logger) *Uploader {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultConfig.BaseDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{
		blobs:  blobs,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Backoff is the wait after a failed attempt (1-based): BaseDelay * 2^(attempt-1).
func (u *Uploader) Backoff(attempt int) time.Duration {
	return u.cfg.BaseDelay << (attempt - 1)
}

// Upload stores one image and returns its public URL. It retries failed
// attempts up to MaxAttempts and returns the last error once they run out.
func (u *Uploader) Upload(ctx context.Context, payload, ownerID string, role Role, listener Listener) (string, error) {
	task := newTask(role, listener)

	mimeType, data, err := DecodeDataURI(payload)
	if err != nil {
		task.LastErr = err
		u.move(task, StatusError, "")
		return "", err
	}
	task.Path = ObjectPath(ownerID, role, u.now().UnixMilli(), mimeType)

	for attempt := 1; attempt <= u.cfg.MaxAttempts; attempt++ {
		task.Attempts = attempt
		u.move(task, StatusUploading, "")

		url, err := u.attempt(ctx, task.Path, data, mimeType)
		if err == nil {
			u.move(task, StatusSuccess, url)
			return url, nil
		}
		task.LastErr = err
		u.logger.Warn("photo upload attempt failed",
			zap.String("owner", ownerID),
			zap.String("role", string(role)),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == u.cfg.MaxAttempts || ctx.Err() != nil {
			break
		}
		u.move(task, StatusRetrying, "")
		if err := u.sleep(ctx, u.Backoff(attempt)); err != nil {
			task.LastErr = err
			break
		}
	}

	u.move(task, StatusError, "")
	return "", fmt.Errorf("upload %s after %d attempts: %w", role, task.Attempts, task.LastErr)
}

func (u *Uploader) attempt(ctx context.Context, path string, data []byte, mimeType string) (string, error) {
	if u.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.cfg.AttemptTimeout)
		defer cancel()
	}
	if err := u.blobs.Upload(ctx, path, data, mimeType); err != nil {
		return "", err
	}
	return u.blobs.PublicURL(ctx, path)
}

func (u *Uploader) move(task *Task, to Status, url string) {
	if err := task.transition(to, url); err != nil {
		u.logger.Error("upload state machine violated", zap.Error(err))
	}
}

// Result aggregates a multi-image upload. URLs holds only supplied roles that
// succeeded.
type Result struct {
	URLs   map[Role]string
	Errors map[Role]error
}

// UploadAll uploads every supplied role concurrently and waits until each
// has reached a terminal status. Empty payloads are skipped.
func (u *Uploader) UploadAll(ctx context.Context, ownerID string, payloads map[Role]string, listener Listener) Result {
	res := Result{URLs: make(map[Role]string), Errors: make(map[Role]error)}
	var mu sync.Mutex

	for role := range payloads {
		if !role.Valid() {
			res.Errors[role] = fmt.Errorf("unknown photo role %q", role)
		}
	}

	var g errgroup.Group
	for _, role := range Roles {
		payload := payloads[role]
		if strings.TrimSpace(payload) == "" {
			continue
		}
		g.Go(func() error {
			url, err := u.Upload(ctx, payload, ownerID, role, listener)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors[role] = err
			} else {
				res.URLs[role] = url
			}
			return nil
		})
	}
	_ = g.Wait()

	u.logger.Info("photo upload finished",
		zap.String("owner", ownerID),
		zap.Int("uploaded", len(res.URLs)),
		zap.Int("failed", len(res.Errors)))
	return res
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
