package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"

	"peopleconnect/internal/query"
	"peopleconnect/internal/storage"
	"peopleconnect/internal/submission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func seedDB(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "submissions.db")

	store, err := storage.Open(ctx, path, nil)
	require.NoError(t, err)
	defer store.Close()

	for _, s := range []submission.Submission{
		{Type: submission.TypeComplaint, Department: "Roads", Name: "Ali", Mobile: "07501234567", Address: "Erbil", Message: "pothole", Status: submission.StatusNew, CreatedAt: "2025-03-04T05:06:07.000000"},
		{Type: submission.TypeRequest, Department: "Water", Name: "Sara", Mobile: "07501234568", Address: "Duhok", Message: "pipe", Status: submission.StatusResolved, CreatedAt: "2025-03-05T05:06:07.000000"},
	} {
		s := s
		_, err := store.Insert(ctx, &s)
		require.NoError(t, err)
	}

	t.Setenv("DB_PATH", path)
	t.Setenv("SECRETS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	return path
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "export")
}

func TestRunExportCSVFiltered(t *testing.T) {
	seedDB(t)

	var out bytes.Buffer
	err := runExport(context.Background(), exportOptions{
		format: "csv",
		filter: query.Filter{Types: []string{"Complaint"}},
	}, &out)
	require.NoError(t, err)

	records, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Contains(t, records[1], "Ali")
}

func TestRunExportXLSXToFile(t *testing.T) {
	seedDB(t)
	out := filepath.Join(t.TempDir(), "submissions.xlsx")

	require.NoError(t, runExport(context.Background(), exportOptions{format: "xlsx", out: out}, nil))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestRunExportRejectsUnknownFormat(t *testing.T) {
	err := runExport(context.Background(), exportOptions{format: "pdf"}, nil)
	assert.ErrorContains(t, err, "unknown format")
}
