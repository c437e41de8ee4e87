package submission

import (
	"context"
	"strings"
	"time"

	apperrors "peopleconnect/internal/errors"
	"peopleconnect/internal/metrics"

	"go.uber.org/zap"
)

// Inserter persists a new submission and returns its id.
type Inserter interface {
	Insert(ctx context.Context, s *Submission) (int64, error)
}

// FileSaver stores uploaded files and returns their stored paths.
type FileSaver interface {
	Save(files []Upload) ([]string, error)
}

// Invalidator drops cached reads after a write.
type Invalidator interface {
	Invalidate()
}

// Notifier is told about every accepted submission.
type Notifier interface {
	SendSubmission(ctx context.Context, s Submission) error
}

// Limits bounds the attachments of a single submission.
type Limits struct {
	MaxAttachments int
	MaxUploadBytes int64
}

// Workflow validates candidates and turns them into stored submissions.
type Workflow struct {
	store    Inserter
	files    FileSaver
	cache    Invalidator
	notifier Notifier
	limits   Limits
	logger   *zap.Logger
	now      func() time.Time
}

// NewWorkflow creates the intake workflow.
//
// Parameters:
//   - store: where submissions are inserted
//   - files: where attachments are written
//   - cache: read cache invalidated after each insert
//   - limits: attachment count and size limits
//   - logger: structured logger
//
// Returns:
//   - *Workflow: ready to accept candidates
func NewWorkflow(store Inserter, files FileSaver, cache Invalidator, limits Limits, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		store:  store,
		files:  files,
		cache:  cache,
		limits: limits,
		logger: logger,
		now:    time.Now,
	}
}

// SetNotifier installs an optional notifier for new submissions.
func (w *Workflow) SetNotifier(n Notifier) {
	w.notifier = n
}

// Submit validates the candidate, stores its attachments, and inserts the
// record with status New.
//
// Validation failures come back as *errors.ValidationError carrying the
// locale key to show the visitor. Nothing is written in that case.
// If the insert fails after files were saved, the files stay on disk.
func (w *Workflow) Submit(ctx context.Context, c Candidate) (Submission, error) {
	if err := c.Validate(); err != nil {
		metrics.RecordRejection(apperrors.ValidationKey(err))
		return Submission{}, err
	}

	files := c.Files
	if w.limits.MaxAttachments > 0 && len(files) > w.limits.MaxAttachments {
		w.logger.Info("📎 Extra attachments ignored",
			zap.Int("received", len(files)),
			zap.Int("kept", w.limits.MaxAttachments))
		files = files[:w.limits.MaxAttachments]
	}
	if err := checkUploads(files, w.limits.MaxUploadBytes); err != nil {
		metrics.RecordRejection(KeyBadAttachment)
		return Submission{}, err
	}

	var paths []string
	if len(files) > 0 {
		saved, err := w.files.Save(files)
		if err != nil {
			return Submission{}, apperrors.NewStorageError("save attachments", err)
		}
		paths = saved
	}

	s := Submission{
		Type:        Type(c.Type),
		Department:  c.Department,
		Name:        c.Name,
		Mobile:      c.Mobile,
		Address:     c.Address,
		Message:     c.Message,
		Lat:         c.Lat,
		Lon:         c.Lon,
		Attachments: strings.Join(paths, AttachmentSeparator),
		Status:      StatusNew,
		CreatedAt:   w.now().UTC().Format(TimestampLayout),
	}

	id, err := w.store.Insert(ctx, &s)
	if err != nil {
		if len(paths) > 0 {
			w.logger.Warn("⚠️  Insert failed, attachments left on disk", zap.Strings("paths", paths))
		}
		return Submission{}, err
	}
	s.ID = id

	w.cache.Invalidate()
	metrics.RecordSubmission(string(s.Type))

	w.logger.Info("✅ Submission stored",
		zap.Int64("id", s.ID),
		zap.String("type", string(s.Type)),
		zap.String("department", s.Department),
		zap.Int("attachments", len(paths)))

	if w.notifier != nil {
		if err := w.notifier.SendSubmission(ctx, s); err != nil {
			w.logger.Warn("⚠️  Failed to send submission notification", zap.Int64("id", s.ID), zap.Error(err))
		}
	}

	return s, nil
}
