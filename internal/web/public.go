package web

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	apperrors "peopleconnect/internal/errors"
	"peopleconnect/internal/export"
	"peopleconnect/internal/metrics"
	"peopleconnect/internal/query"
	"peopleconnect/internal/session"
	"peopleconnect/internal/submission"

	"go.uber.org/zap"
)

// multipartMemory is how much of a multipart body is kept in memory; the
// rest spills to temporary files.
const multipartMemory = 8 << 20

type submitView struct {
	Types       []submission.Type
	Departments []string
	Form        map[string]string
}

// filterView is shared by the list, map and admin pages.
type filterView struct {
	Filter      query.Filter
	Types       []submission.Type
	Statuses    []submission.Status
	Departments []string
	Query       template.URL // encoded filter for export links
}

type listView struct {
	filterView
	Rows []submission.Submission
}

type mapView struct {
	filterView
	View   query.MapView
	HasAny bool
}

func (s *Server) submitPage(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "submit", s.submitView(r, nil))
	if r.URL.Query().Get("submitted") != "" {
		p.Notice = p.T("success") + " #" + r.URL.Query().Get("submitted")
	}
	s.render(w, http.StatusOK, "submit", p)
}

func (s *Server) submitView(r *http.Request, form map[string]string) submitView {
	if form == nil {
		form = map[string]string{}
	}
	return submitView{
		Types:       submission.Types,
		Departments: session.FromContext(r.Context()).Departments(),
		Form:        form,
	}
}

// submit handles the multipart form.
//
// Flow:
//  1. Parse the form (bounded body size)
//  2. Build the candidate, including uploaded files
//  3. Hand it to the workflow
//  4. Redirect to the form with a success notice, or re-render it with the
//     validation message
func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.opts.MaxAttachments+1)*s.opts.MaxUploadBytes + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.rejectSubmission(w, r, apperrors.NewValidationError("bad_attachment", "attachments"))
			return
		}
		s.errorPage(w, r, http.StatusBadRequest, "server_error")
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	c := submission.Candidate{
		Type:       r.PostFormValue("type"),
		Department: r.PostFormValue("department"),
		Name:       r.PostFormValue("name"),
		Mobile:     r.PostFormValue("mobile"),
		Address:    r.PostFormValue("address"),
		Message:    r.PostFormValue("message"),
	}

	var ok bool
	if c.Lat, ok = parseCoord(r.PostFormValue("lat")); !ok {
		s.rejectSubmission(w, r, apperrors.NewValidationError("bad_coords", "lat"))
		return
	}
	if c.Lon, ok = parseCoord(r.PostFormValue("lon")); !ok {
		s.rejectSubmission(w, r, apperrors.NewValidationError("bad_coords", "lon"))
		return
	}

	if r.MultipartForm != nil {
		files, closeAll, err := openUploads(r.MultipartForm.File["attachments"])
		defer closeAll()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		c.Files = files
	}

	sub, err := s.deps.Workflow.Submit(r.Context(), c)
	if err != nil {
		if apperrors.IsValidation(err) {
			s.rejectSubmission(w, r, err)
			return
		}
		s.fail(w, r, err)
		return
	}

	s.deps.Health.RecordSubmission()
	http.Redirect(w, r, fmt.Sprintf("/submit?submitted=%d", sub.ID), http.StatusSeeOther)
}

// rejectSubmission re-renders the form with the entered values and the
// validation message.
func (s *Server) rejectSubmission(w http.ResponseWriter, r *http.Request, err error) {
	form := map[string]string{}
	for _, k := range []string{"type", "department", "name", "mobile", "address", "message", "lat", "lon"} {
		form[k] = r.PostFormValue(k)
	}
	p := s.newPage(r, "submit", s.submitView(r, form))
	p.Error = p.T(apperrors.ValidationKey(err))
	s.logger.Debug("📝 Submission rejected", zap.String("reason", apperrors.ValidationKey(err)))
	s.render(w, http.StatusUnprocessableEntity, "submit", p)
}

func parseCoord(raw string) (*float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}

func openUploads(headers []*multipart.FileHeader) ([]submission.Upload, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	uploads := make([]submission.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("open upload %q: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		uploads = append(uploads, submission.Upload{Filename: fh.Filename, Size: fh.Size, Content: f})
	}
	return uploads, closeAll, nil
}

// filtered loads every row and applies the filter from the query string.
func (s *Server) filtered(r *http.Request) (filterView, []submission.Submission, error) {
	rows, err := s.deps.Reader.Get(r.Context())
	if err != nil {
		return filterView{}, nil, err
	}
	f := query.FromValues(r.URL.Query())
	fv := filterView{
		Filter:      f,
		Types:       submission.Types,
		Statuses:    submission.Statuses,
		Departments: query.Departments(rows),
		Query:       template.URL(f.Values().Encode()),
	}
	return fv, f.Apply(rows), nil
}

func (s *Server) listPage(w http.ResponseWriter, r *http.Request) {
	fv, rows, err := s.filtered(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, http.StatusOK, "list", s.newPage(r, "list", listView{filterView: fv, Rows: rows}))
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	s.writeCSV(w, r, export.CSVFileName)
}

func (s *Server) adminExportCSV(w http.ResponseWriter, r *http.Request) {
	s.writeCSV(w, r, export.AdminCSVFileName)
}

func (s *Server) writeCSV(w http.ResponseWriter, r *http.Request, filename string) {
	_, rows, err := s.filtered(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rows); err != nil {
		s.fail(w, r, err)
		return
	}
	metrics.RecordExport("csv")
	download(w, "text/csv; charset=utf-8", filename, buf.Bytes())
}

func (s *Server) exportXLSX(w http.ResponseWriter, r *http.Request) {
	_, rows, err := s.filtered(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rows); err != nil {
		s.fail(w, r, err)
		return
	}
	metrics.RecordExport("xlsx")
	download(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.XLSXFileName, buf.Bytes())
}

func (s *Server) mapData(r *http.Request) (mapView, error) {
	fv, rows, err := s.filtered(r)
	if err != nil {
		return mapView{}, err
	}
	view, ok := query.BuildMap(rows)
	if !ok {
		view = query.MapView{Points: []query.Point{}, Zoom: query.DefaultZoom}
	}
	return mapView{filterView: fv, View: view, HasAny: ok}, nil
}

func (s *Server) mapPage(w http.ResponseWriter, r *http.Request) {
	mv, err := s.mapData(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, http.StatusOK, "map", s.newPage(r, "map", mv))
}

func (s *Server) mapPoints(w http.ResponseWriter, r *http.Request) {
	mv, err := s.mapData(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mv.View)
}
