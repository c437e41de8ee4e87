// Package submission holds the submission record and the intake workflow.
package submission

import (
	"io"
	"strings"
)

// Type is the kind of citizen submission.
type Type string

const (
	TypeComplaint  Type = "Complaint"
	TypeSuggestion Type = "Suggestion"
	TypeProject    Type = "Project"
	TypeRequest    Type = "Request"
)

// Types lists every submission type in display order.
var Types = []Type{TypeComplaint, TypeSuggestion, TypeProject, TypeRequest}

// Valid reports whether t is one of the four known types.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Status is the triage state of a submission.
//
// Every status is reachable from every other one; there are no guarded
// transitions.
type Status string

const (
	StatusNew        Status = "New"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusRejected   Status = "Rejected"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusNew, StatusInProgress, StatusResolved, StatusRejected}

// Valid reports whether s is one of the four fixed statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus converts a form value into a Status.
func ParseStatus(value string) (Status, bool) {
	s := Status(strings.TrimSpace(value))
	return s, s.Valid()
}

// TimestampLayout is the ISO-8601 layout used for created_at (always UTC).
const TimestampLayout = "2006-01-02T15:04:05.000000"

// AttachmentSeparator joins attachment paths inside the attachments column.
const AttachmentSeparator = ","

// Submission is one citizen-filed record.
//
// Only Status changes after creation.
type Submission struct {
	ID          int64    `db:"id" json:"id"`
	Type        Type     `db:"type" json:"type"`
	Department  string   `db:"department" json:"department"`
	Name        string   `db:"name" json:"name"`
	Mobile      string   `db:"mobile" json:"mobile"`
	Address     string   `db:"address" json:"address"`
	Message     string   `db:"message" json:"message"`
	Lat         *float64 `db:"lat" json:"lat"`
	Lon         *float64 `db:"lon" json:"lon"`
	Attachments string   `db:"attachments" json:"attachments"`
	Status      Status   `db:"status" json:"status"`
	CreatedAt   string   `db:"created_at" json:"created_at"`
}

// AttachmentPaths splits the stored attachment list.
func (s Submission) AttachmentPaths() []string {
	var paths []string
	for _, p := range strings.Split(s.Attachments, AttachmentSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// HasLocation reports whether both coordinates are present.
func (s Submission) HasLocation() bool {
	return s.Lat != nil && s.Lon != nil
}

// Upload is one file attached to a candidate submission.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// Candidate is an unvalidated submission as received from the form.
type Candidate struct {
	Type       string   `validate:"required,oneof=Complaint Suggestion Project Request"`
	Department string   `validate:"required"`
	Name       string   `validate:"required"`
	Mobile     string   `validate:"required,mobile"`
	Address    string   `validate:"required"`
	Message    string   `validate:"required"`
	Lat        *float64 `validate:"omitempty,gte=-90,lte=90"`
	Lon        *float64 `validate:"omitempty,gte=-180,lte=180"`
	Files      []Upload `validate:"-"`
}
