// Package export renders submissions as CSV, XLSX, PDF and PNG documents
// and builds outbound contact links.
package export

import (
	"strconv"
	"strings"

	"peopleconnect/internal/submission"
)

// Field is one labelled value of a single-record document.
type Field struct {
	Label string
	Value string
}

// RecordFields returns the labelled fields of a record in document order.
func RecordFields(s submission.Submission) []Field {
	return []Field{
		{"ID", strconv.FormatInt(s.ID, 10)},
		{"Type", string(s.Type)},
		{"Department", s.Department},
		{"Name", s.Name},
		{"Mobile", s.Mobile},
		{"Address", s.Address},
		{"Status", string(s.Status)},
		{"Created", s.CreatedAt},
		{"Lat", formatCoord(s.Lat)},
		{"Lon", formatCoord(s.Lon)},
		{"Message", s.Message},
		{"Attachments", s.Attachments},
	}
}

// Columns is the column order of tabular exports, matching the table.
var Columns = []string{
	"id", "type", "department", "name", "mobile", "address",
	"message", "lat", "lon", "attachments", "status", "created_at",
}

func row(s submission.Submission) []string {
	return []string{
		strconv.FormatInt(s.ID, 10),
		string(s.Type),
		cell(s.Department),
		cell(s.Name),
		cell(s.Mobile),
		cell(s.Address),
		cell(s.Message),
		formatCoord(s.Lat),
		formatCoord(s.Lon),
		cell(s.Attachments),
		string(s.Status),
		s.CreatedAt,
	}
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// cell quotes citizen-entered text that a spreadsheet would read as a
// formula.
func cell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}
