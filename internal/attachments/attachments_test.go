package attachments

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"peopleconnect/internal/submission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "uploads"), nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 891011000, time.UTC) }
	return s
}

func TestSaveNamesFilesWithTimestamp(t *testing.T) {
	s := newTestStore(t)

	paths, err := s.Save([]submission.Upload{
		{Filename: "photo.png", Content: strings.NewReader("png-bytes")},
	})
	require.NoError(t, err)
	require.Len(t, paths, 1)

	assert.Equal(t, filepath.Join(s.Dir(), "20250304050607891011_photo.png"), paths[0])
	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestSaveAvoidsCollisions(t *testing.T) {
	s := newTestStore(t)

	paths, err := s.Save([]submission.Upload{
		{Filename: "scan.pdf", Content: strings.NewReader("one")},
		{Filename: "scan.pdf", Content: strings.NewReader("two")},
	})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.NotEqual(t, paths[0], paths[1])
	assert.Equal(t, "20250304050607891012_scan.pdf", filepath.Base(paths[1]))
}

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"../../etc/passwd":      "passwd",
		`C:\Users\me\a,b.docx`:  "a_b.docx",
		".hidden.png":           "hidden.png",
		"":                      "file",
		"report final.pdf":      "report final.pdf",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanName(in), in)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"../secret", "a/b.png", "", ".env"} {
		_, err := s.Open(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestOpenAndRemove(t *testing.T) {
	s := newTestStore(t)
	paths, err := s.Save([]submission.Upload{{Filename: "a.jpg", Content: strings.NewReader("jpg")}})
	require.NoError(t, err)

	f, err := s.Open(filepath.Base(paths[0]))
	require.NoError(t, err)
	data, _ := io.ReadAll(f)
	f.Close()
	assert.Equal(t, "jpg", string(data))

	s.Remove(append(paths, filepath.Join(s.Dir(), "missing.png")))
	_, err = os.Stat(paths[0])
	assert.True(t, os.IsNotExist(err))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestSaveCleansUpOnFailure(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save([]submission.Upload{
		{Filename: "ok.png", Content: strings.NewReader("ok")},
		{Filename: "bad.png", Content: failingReader{}},
	})
	require.Error(t, err)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
