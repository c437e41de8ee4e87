// Package query filters submission lists and builds the map view.
package query

import (
	"net/url"
	"sort"
	"strings"

	"peopleconnect/internal/submission"
)

// Filter is the set of list filters. Empty selections match everything.
type Filter struct {
	Types       []string
	Departments []string
	Statuses    []string
	Query       string
}

// FromValues reads a filter from query parameters type, department,
// status (each repeatable) and q.
func FromValues(v url.Values) Filter {
	return Filter{
		Types:       nonEmpty(v["type"]),
		Departments: nonEmpty(v["department"]),
		Statuses:    nonEmpty(v["status"]),
		Query:       strings.TrimSpace(v.Get("q")),
	}
}

// Values encodes the filter back into query parameters.
func (f Filter) Values() url.Values {
	v := url.Values{}
	for _, t := range f.Types {
		v.Add("type", t)
	}
	for _, d := range f.Departments {
		v.Add("department", d)
	}
	for _, s := range f.Statuses {
		v.Add("status", s)
	}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	return v
}

// Apply returns the rows that pass every filter, keeping their order.
//
// The search text matches case-insensitively as a substring of name,
// mobile, address or message.
func (f Filter) Apply(rows []submission.Submission) []submission.Submission {
	q := strings.ToLower(f.Query)
	out := make([]submission.Submission, 0, len(rows))
	for _, r := range rows {
		if len(f.Types) > 0 && !contains(f.Types, string(r.Type)) {
			continue
		}
		if len(f.Departments) > 0 && !contains(f.Departments, r.Department) {
			continue
		}
		if len(f.Statuses) > 0 && !contains(f.Statuses, string(r.Status)) {
			continue
		}
		if q != "" && !matches(r, q) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Department returns only the rows of dept.
func Department(rows []submission.Submission, dept string) []submission.Submission {
	return Filter{Departments: []string{dept}}.Apply(rows)
}

// Departments returns the distinct departments present in rows, sorted.
func Departments(rows []submission.Submission) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		if r.Department != "" && !seen[r.Department] {
			seen[r.Department] = true
			out = append(out, r.Department)
		}
	}
	sort.Strings(out)
	return out
}

func matches(r submission.Submission, q string) bool {
	for _, field := range []string{r.Name, r.Mobile, r.Address, r.Message} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
