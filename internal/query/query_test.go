package query

import (
	"net/url"
	"testing"

	"peopleconnect/internal/submission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func fixture() []submission.Submission {
	return []submission.Submission{
		{ID: 4, Type: submission.TypeComplaint, Department: "Roads", Name: "Ali", Mobile: "0750", Address: "Erbil", Message: "Pothole", Status: submission.StatusNew, Lat: ptr(36.0), Lon: ptr(44.0)},
		{ID: 3, Type: submission.TypeSuggestion, Department: "Water", Name: "Sara", Mobile: "0770", Address: "Duhok", Message: "More taps", Status: submission.StatusResolved},
		{ID: 2, Type: submission.TypeComplaint, Department: "Water", Name: "Omar", Mobile: "0751", Address: "Zakho", Message: "Leak near SCHOOL", Status: submission.StatusInProgress, Lat: ptr(37.0), Lon: ptr(42.0)},
		{ID: 1, Type: submission.TypeRequest, Department: "Roads", Name: "Lana", Mobile: "0772", Address: "Erbil", Message: "Street light", Status: submission.StatusNew, Lat: ptr(35.0)},
	}
}

func ids(rows []submission.Submission) []int64 {
	var out []int64
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"empty filter keeps all in order", Filter{}, []int64{4, 3, 2, 1}},
		{"type", Filter{Types: []string{"Complaint"}}, []int64{4, 2}},
		{"department and status", Filter{Departments: []string{"Water"}, Statuses: []string{"Resolved"}}, []int64{3}},
		{"search is case-insensitive", Filter{Query: "school"}, []int64{2}},
		{"search matches mobile", Filter{Query: "077"}, []int64{3, 1}},
		{"search matches address", Filter{Query: "erbil"}, []int64{4, 1}},
		{"no match", Filter{Types: []string{"Project"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.filter.Apply(fixture())))
		})
	}
}

func TestFromValuesRoundTrip(t *testing.T) {
	v := url.Values{"type": {"Complaint", " "}, "department": {"Roads"}, "q": {"  leak "}}
	f := FromValues(v)

	assert.Equal(t, []string{"Complaint"}, f.Types)
	assert.Equal(t, []string{"Roads"}, f.Departments)
	assert.Nil(t, f.Statuses)
	assert.Equal(t, "leak", f.Query)
	assert.Equal(t, "department=Roads&q=leak&type=Complaint", f.Values().Encode())
}

func TestDepartmentHelpers(t *testing.T) {
	assert.Equal(t, []int64{3, 2}, ids(Department(fixture(), "Water")))
	assert.Equal(t, []string{"Roads", "Water"}, Departments(fixture()))
}

func TestBuildMap(t *testing.T) {
	view, ok := BuildMap(fixture())
	require.True(t, ok)

	require.Len(t, view.Points, 2, "rows missing either coordinate are dropped")
	assert.Equal(t, int64(4), view.Points[0].ID)
	assert.InDelta(t, 36.5, view.CenterLat, 1e-9)
	assert.InDelta(t, 43.0, view.CenterLon, 1e-9)
	assert.Equal(t, DefaultZoom, view.Zoom)
}

func TestBuildMapWithoutLocations(t *testing.T) {
	view, ok := BuildMap([]submission.Submission{{ID: 1}})
	assert.False(t, ok)
	assert.Empty(t, view.Points)
}
