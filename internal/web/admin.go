package web

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"peopleconnect/internal/attachments"
	"peopleconnect/internal/export"
	"peopleconnect/internal/metrics"
	"peopleconnect/internal/query"
	"peopleconnect/internal/session"
	"peopleconnect/internal/submission"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// statusAction is one status button of a record.
type statusAction struct {
	Status submission.Status
	Key    string
}

var statusActions = []statusAction{
	{submission.StatusNew, "mark_new"},
	{submission.StatusInProgress, "in_prog"},
	{submission.StatusResolved, "resolved"},
	{submission.StatusRejected, "rejected"},
}

// records is what the shared record controls need.
type records struct {
	Rows       []submission.Submission
	Actions    []statusAction
	Next       string
	Translator bool
}

type adminView struct {
	filterView
	records
	SessionDepartments []string
}

type deptView struct {
	records
	Departments []string
	Department  string
	Locked      bool
}

// notices lists the notice keys a redirect may ask the admin page to show.
var notices = map[string]bool{"added": true, "reset": true}

func (s *Server) adminPage(w http.ResponseWriter, r *http.Request) {
	fv, rows, err := s.filtered(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	view := adminView{
		filterView:         fv,
		records:            s.records(rows, r.URL.RequestURI()),
		SessionDepartments: session.FromContext(r.Context()).Departments(),
	}
	p := s.newPage(r, "admin", view)
	if key := r.URL.Query().Get("notice"); notices[key] {
		p.Notice = p.T(key)
	}
	s.render(w, http.StatusOK, "admin", p)
}

func (s *Server) records(rows []submission.Submission, next string) records {
	return records{
		Rows:       rows,
		Actions:    statusActions,
		Next:       next,
		Translator: s.deps.Translator != nil,
	}
}

func (s *Server) addDepartment(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PostFormValue("department"))
	if name != "" && session.FromContext(r.Context()).AddDepartment(name) {
		s.logger.Info("🏢 Department added to session list", zap.String("department", name))
	}
	http.Redirect(w, r, "/admin?notice=added", http.StatusSeeOther)
}

func (s *Server) resetDepartments(w http.ResponseWriter, r *http.Request) {
	session.FromContext(r.Context()).ResetDepartments(s.opts.DefaultDepartments)
	http.Redirect(w, r, "/admin?notice=reset", http.StatusSeeOther)
}

func (s *Server) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	status, ok := submission.ParseStatus(r.PostFormValue("status"))
	if !ok {
		s.errorPage(w, r, http.StatusBadRequest, "server_error")
		return
	}

	if _, err := s.deps.Manager.Transition(r.Context(), id, status); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, safeNext(r.PostFormValue("next"), "/admin"), http.StatusSeeOther)
}

func (s *Server) deleteSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	if _, err := s.deps.Manager.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, safeNext(r.PostFormValue("next"), "/admin"), http.StatusSeeOther)
}

// record resolves the {id} URL parameter against the cached rows.
func (s *Server) record(w http.ResponseWriter, r *http.Request) (submission.Submission, bool) {
	id, ok := idParam(r)
	if !ok {
		s.notFound(w, r)
		return submission.Submission{}, false
	}
	sub, found, err := s.find(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return submission.Submission{}, false
	}
	if !found {
		s.notFound(w, r)
		return submission.Submission{}, false
	}
	return sub, true
}

func (s *Server) find(ctx context.Context, id int64) (submission.Submission, bool, error) {
	rows, err := s.deps.Reader.Get(ctx)
	if err != nil {
		return submission.Submission{}, false, err
	}
	for _, row := range rows {
		if row.ID == id {
			return row, true, nil
		}
	}
	return submission.Submission{}, false, nil
}

func (s *Server) recordPDF(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.record(w, r)
	if !ok {
		return
	}
	data, err := s.deps.Documents.RecordPDF(r.Context(), sub)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	metrics.RecordExport("pdf")
	download(w, "application/pdf", export.PDFFileName(sub.ID), data)
}

func (s *Server) recordCard(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.record(w, r)
	if !ok {
		return
	}
	data, err := s.deps.Documents.RecordCard(sub)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	metrics.RecordExport("png")
	download(w, "image/png", export.PNGFileName(sub.ID), data)
}

// summaryPNG renders the filtered admin view as a PNG table.
func (s *Server) summaryPNG(w http.ResponseWriter, r *http.Request) {
	_, rows, err := s.filtered(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := s.deps.Documents.SummaryTable(rows, s.opts.Title)
	if errors.Is(err, export.ErrNoRows) {
		s.errorPage(w, r, http.StatusNotFound, "no_data")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	metrics.RecordExport("summary")
	download(w, "image/png", "submissions_summary.png", data)
}

// contact redirects to a WhatsApp or SMS link for the record's mobile
// number carrying the operator's text. Blank text falls back to the
// default message.
func (s *Server) contact(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.record(w, r)
	if !ok {
		return
	}
	text := strings.TrimSpace(r.URL.Query().Get("text"))
	if text == "" {
		text = export.DefaultMessage(sub.ID)
	}

	var link string
	switch r.URL.Query().Get("channel") {
	case "whatsapp":
		link = export.WhatsAppLink(sub.Mobile, text)
	case "sms":
		link = export.SMSLink(sub.Mobile, text)
	default:
		s.errorPage(w, r, http.StatusBadRequest, "server_error")
		return
	}
	http.Redirect(w, r, link, http.StatusSeeOther)
}

func (s *Server) translateMessage(w http.ResponseWriter, r *http.Request) {
	if s.deps.Translator == nil {
		s.notFound(w, r)
		return
	}
	sub, ok := s.record(w, r)
	if !ok {
		return
	}
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = session.FromContext(r.Context()).Lang()
	}

	res, err := s.deps.Translator.Translate(r.Context(), sub.Message, s.deps.Bundle.Normalize(lang))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) attachment(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	f, err := s.deps.Files.Open(name)
	if errors.Is(err, attachments.ErrInvalidName) || errors.Is(err, fs.ErrNotExist) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *Server) deptPage(w http.ResponseWriter, r *http.Request) {
	s.renderDept(w, r, http.StatusOK, r.URL.Query().Get("department"), "")
}

// renderDept shows the department panel for dept, or the unlock form when
// dept is password protected and not yet unlocked in this session.
func (s *Server) renderDept(w http.ResponseWriter, r *http.Request, status int, dept, errKey string) {
	sess := session.FromContext(r.Context())
	if dept == "" {
		dept = sess.UnlockedDepartment()
	}

	view := deptView{
		Departments: sess.Departments(),
		Department:  dept,
		Locked:      dept != "" && s.deps.Gate.DepartmentsLocked() && sess.UnlockedDepartment() != dept,
	}
	if dept != "" && !view.Locked {
		rows, err := s.deps.Reader.Get(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		view.records = s.records(query.Department(rows, dept), r.URL.RequestURI())
	}

	p := s.newPage(r, "dept", view)
	if errKey != "" {
		p.Error = p.T(errKey)
	}
	s.render(w, status, "dept", p)
}

func (s *Server) deptLogin(w http.ResponseWriter, r *http.Request) {
	dept := strings.TrimSpace(r.PostFormValue("department"))
	if err := s.deps.Gate.UnlockDepartment(clientKey(r), dept, r.PostFormValue("password")); err != nil {
		status, key := s.classify(r, err)
		s.renderDept(w, r, status, dept, key)
		return
	}
	sess, err := s.deps.Sessions.Renew(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sess.UnlockDepartment(dept)
	http.Redirect(w, r, "/dept?department="+url.QueryEscape(dept), http.StatusSeeOther)
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}
