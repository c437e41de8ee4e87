// Package manager applies administrative changes to stored submissions.
package manager

import (
	"context"
	"fmt"

	"peopleconnect/internal/metrics"
	"peopleconnect/internal/submission"

	"go.uber.org/zap"
)

// Store is the subset of storage the manager writes through.
type Store interface {
	Get(ctx context.Context, id int64) (submission.Submission, bool, error)
	UpdateStatus(ctx context.Context, id int64, status submission.Status) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Invalidator drops cached reads.
type Invalidator interface {
	Invalidate()
}

// FileRemover deletes stored attachments.
type FileRemover interface {
	Remove(paths []string)
}

// Notifier is told about status changes and deletions.
type Notifier interface {
	SendStatusChange(ctx context.Context, id int64, status submission.Status) error
	SendDeletion(ctx context.Context, id int64) error
}

// Manager changes status and deletes submissions.
//
// Unknown ids are silent no-ops: the returned boolean is false and no error
// is raised, so callers never show a failure for a row that is already gone.
type Manager struct {
	store    Store
	cache    Invalidator
	files    FileRemover
	notifier Notifier
	logger   *zap.Logger
}

// New creates a manager. files may be nil, in which case attachments of
// deleted submissions stay on disk.
func New(store Store, cache Invalidator, files FileRemover, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, cache: cache, files: files, logger: logger}
}

// SetNotifier installs an optional notifier.
func (m *Manager) SetNotifier(n Notifier) {
	m.notifier = n
}

// Transition sets the status of submission id.
func (m *Manager) Transition(ctx context.Context, id int64, status submission.Status) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("invalid status %q", status)
	}

	changed, err := m.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return false, err
	}
	m.cache.Invalidate()

	if !changed {
		m.logger.Info("ℹ️  Status change for unknown submission ignored", zap.Int64("id", id))
		return false, nil
	}

	metrics.RecordStatusChange(string(status))
	m.logger.Info("🔄 Status changed", zap.Int64("id", id), zap.String("status", string(status)))

	if m.notifier != nil {
		if err := m.notifier.SendStatusChange(ctx, id, status); err != nil {
			m.logger.Warn("⚠️  Failed to send status notification", zap.Int64("id", id), zap.Error(err))
		}
	}
	return true, nil
}

// Delete removes submission id. When a FileRemover was configured its
// attachments are removed too.
func (m *Manager) Delete(ctx context.Context, id int64) (bool, error) {
	var paths []string
	if m.files != nil {
		sub, found, err := m.store.Get(ctx, id)
		if err != nil {
			return false, err
		}
		if found {
			paths = sub.AttachmentPaths()
		}
	}

	deleted, err := m.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	m.cache.Invalidate()

	if !deleted {
		m.logger.Info("ℹ️  Delete for unknown submission ignored", zap.Int64("id", id))
		return false, nil
	}

	if m.files != nil && len(paths) > 0 {
		m.files.Remove(paths)
	}

	metrics.RecordDeletion()
	m.logger.Info("🗑️  Submission deleted", zap.Int64("id", id), zap.Int("attachments_purged", len(paths)))

	if m.notifier != nil {
		if err := m.notifier.SendDeletion(ctx, id); err != nil {
			m.logger.Warn("⚠️  Failed to send deletion notification", zap.Int64("id", id), zap.Error(err))
		}
	}
	return true, nil
}
