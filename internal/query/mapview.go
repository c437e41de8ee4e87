package query

import "peopleconnect/internal/submission"

// DefaultZoom is the initial map zoom level.
const DefaultZoom = 9

// Point is one map marker.
type Point struct {
	ID         int64   `json:"id"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Type       string  `json:"type"`
	Department string  `json:"department"`
	Status     string  `json:"status"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
}

// MapView is everything the map page needs to draw markers.
type MapView struct {
	Points    []Point `json:"points"`
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	Zoom      int     `json:"zoom"`
}

// BuildMap keeps only rows with both coordinates and centres the view on
// their mean. ok is false when no row has a location.
func BuildMap(rows []submission.Submission) (view MapView, ok bool) {
	var sumLat, sumLon float64
	for _, r := range rows {
		if !r.HasLocation() {
			continue
		}
		view.Points = append(view.Points, Point{
			ID:         r.ID,
			Lat:        *r.Lat,
			Lon:        *r.Lon,
			Type:       string(r.Type),
			Department: r.Department,
			Status:     string(r.Status),
			Name:       r.Name,
			Address:    r.Address,
		})
		sumLat += *r.Lat
		sumLon += *r.Lon
	}

	if len(view.Points) == 0 {
		return MapView{Points: []Point{}, Zoom: DefaultZoom}, false
	}

	n := float64(len(view.Points))
	view.CenterLat = sumLat / n
	view.CenterLon = sumLon / n
	view.Zoom = DefaultZoom
	return view, true
}
