package submission

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "peopleconnect/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	inserted []Submission
	err      error
}

func (f *fakeStore) Insert(ctx context.Context, s *Submission) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.inserted = append(f.inserted, *s)
	return int64(len(f.inserted)), nil
}

type fakeFiles struct {
	saved [][]Upload
	err   error
}

func (f *fakeFiles) Save(files []Upload) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.saved = append(f.saved, files)
	paths := make([]string, len(files))
	for i, u := range files {
		paths[i] = "uploads/x_" + u.Filename
	}
	return paths, nil
}

type fakeCache struct{ invalidations int }

func (f *fakeCache) Invalidate() { f.invalidations++ }

type fakeNotifier struct {
	sent []Submission
	err  error
}

func (f *fakeNotifier) SendSubmission(ctx context.Context, s Submission) error {
	f.sent = append(f.sent, s)
	return f.err
}

func validCandidate() Candidate {
	return Candidate{
		Type:       "Complaint",
		Department: "Roads",
		Name:       "Ali",
		Mobile:     "0750 123 4567",
		Address:    "Erbil",
		Message:    "Pothole",
	}
}

func newTestWorkflow() (*Workflow, *fakeStore, *fakeFiles, *fakeCache) {
	store := &fakeStore{}
	files := &fakeFiles{}
	cache := &fakeCache{}
	w := NewWorkflow(store, files, cache, Limits{MaxAttachments: 3, MaxUploadBytes: 1024}, nil)
	w.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 891011000, time.UTC) }
	return w, store, files, cache
}

func TestMobileIsValid(t *testing.T) {
	tests := []struct {
		mobile string
		want   bool
	}{
		{"0750 123 4567", true},
		{"+964-750-123-4567", true},
		{"12345678", false},
		{"123456789", true},
		{"123456789012345", true},
		{"1234567890123456", false},
		{"٠٧٥٠١٢٣٤٥٦٧", true},
		{"abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.mobile, func(t *testing.T) {
			assert.Equal(t, tt.want, MobileIsValid(tt.mobile))
		})
	}
}

func TestMobileDigitsNormalizesArabicIndic(t *testing.T) {
	assert.Equal(t, "07501234567", MobileDigits("٠٧٥٠ ١٢٣ ٤٥٦٧"))
	assert.Equal(t, "0750", MobileDigits("۰۷۵۰"))
}

func TestValidateOrdering(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Candidate)
		key    string
	}{
		{"whitespace name", func(c *Candidate) { c.Name = "   " }, KeyFillAll},
		{"missing field beats bad mobile", func(c *Candidate) { c.Address = ""; c.Mobile = "12" }, KeyFillAll},
		{"bad mobile", func(c *Candidate) { c.Mobile = "12345678" }, KeyBadMobile},
		{"unknown type", func(c *Candidate) { c.Type = "Praise" }, KeyBadType},
		{"latitude out of range", func(c *Candidate) { lat := 91.0; c.Lat = &lat }, KeyBadCoords},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCandidate()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.key, apperrors.ValidationKey(err))
		})
	}
}

func TestSubmitStoresNewSubmission(t *testing.T) {
	w, store, _, cache := newTestWorkflow()
	notifier := &fakeNotifier{}
	w.SetNotifier(notifier)

	c := validCandidate()
	c.Name = "  Ali  "
	lat, lon := 36.19, 44.01
	c.Lat, c.Lon = &lat, &lon

	got, err := w.Submit(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, StatusNew, got.Status)
	assert.Equal(t, "Ali", got.Name)
	assert.Equal(t, "2025-03-04T05:06:07.891011", got.CreatedAt)
	assert.Empty(t, got.Attachments)
	assert.True(t, got.HasLocation())
	require.Len(t, store.inserted, 1)
	assert.Equal(t, 1, cache.invalidations)
	assert.Len(t, notifier.sent, 1)
}

func TestSubmitRejectsWithoutWriting(t *testing.T) {
	w, store, files, cache := newTestWorkflow()

	c := validCandidate()
	c.Mobile = "12345678"
	c.Files = []Upload{{Filename: "a.png", Size: 1, Content: strings.NewReader("x")}}

	_, err := w.Submit(context.Background(), c)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Empty(t, store.inserted)
	assert.Empty(t, files.saved)
	assert.Zero(t, cache.invalidations)
}

func TestSubmitKeepsFirstThreeAttachments(t *testing.T) {
	w, _, files, _ := newTestWorkflow()

	c := validCandidate()
	for _, name := range []string{"a.png", "b.pdf", "c.docx", "d.jpg"} {
		c.Files = append(c.Files, Upload{Filename: name, Size: 10, Content: strings.NewReader("data")})
	}

	got, err := w.Submit(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, files.saved, 1)
	assert.Len(t, files.saved[0], 3)
	assert.Equal(t, []string{"uploads/x_a.png", "uploads/x_b.pdf", "uploads/x_c.docx"}, got.AttachmentPaths())
}

func TestSubmitRejectsBadAttachments(t *testing.T) {
	tests := []struct {
		name   string
		upload Upload
	}{
		{"disallowed extension", Upload{Filename: "run.exe", Size: 10}},
		{"too large", Upload{Filename: "big.pdf", Size: 4096}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, store, _, _ := newTestWorkflow()
			c := validCandidate()
			c.Files = []Upload{tt.upload}

			_, err := w.Submit(context.Background(), c)
			assert.Equal(t, KeyBadAttachment, apperrors.ValidationKey(err))
			assert.Empty(t, store.inserted)
		})
	}
}

func TestSubmitSurfacesStorageFailures(t *testing.T) {
	w, store, files, cache := newTestWorkflow()
	store.err = apperrors.NewStorageError("insert submission", errors.New("disk full"))

	_, err := w.Submit(context.Background(), validCandidate())
	assert.True(t, apperrors.IsStorage(err))
	assert.Zero(t, cache.invalidations)

	files.err = errors.New("read-only")
	c := validCandidate()
	c.Files = []Upload{{Filename: "a.png", Size: 1}}
	_, err = w.Submit(context.Background(), c)
	assert.True(t, apperrors.IsStorage(err))
}

func TestSubmitIgnoresNotifierFailure(t *testing.T) {
	w, store, _, _ := newTestWorkflow()
	w.SetNotifier(&fakeNotifier{err: errors.New("telegram down")})

	_, err := w.Submit(context.Background(), validCandidate())
	require.NoError(t, err)
	assert.Len(t, store.inserted, 1)
}

func TestStatusAndTypeHelpers(t *testing.T) {
	s, ok := ParseStatus(" In Progress ")
	assert.True(t, ok)
	assert.Equal(t, StatusInProgress, s)

	_, ok = ParseStatus("Closed")
	assert.False(t, ok)

	assert.True(t, TypeProject.Valid())
	assert.False(t, Type("complaint").Valid())

	sub := Submission{Attachments: "uploads/a.png, ,uploads/b.pdf"}
	assert.Equal(t, []string{"uploads/a.png", "uploads/b.pdf"}, sub.AttachmentPaths())
	assert.Nil(t, Submission{}.AttachmentPaths())
}
