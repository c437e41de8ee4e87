// Package web is the HTML front end: the submit form, the public list and
// map, the admin and department panels, and their downloads.
package web

import (
	"context"
	"net/http"
	"os"

	"peopleconnect/internal/auth"
	"peopleconnect/internal/health"
	"peopleconnect/internal/i18n"
	"peopleconnect/internal/metrics"
	"peopleconnect/internal/session"
	"peopleconnect/internal/submission"
	"peopleconnect/internal/translate"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Reader returns every submission, newest first.
type Reader interface {
	Get(ctx context.Context) ([]submission.Submission, error)
}

// Submitter accepts new submissions.
type Submitter interface {
	Submit(ctx context.Context, c submission.Candidate) (submission.Submission, error)
}

// RecordManager changes status and deletes submissions.
type RecordManager interface {
	Transition(ctx context.Context, id int64, status submission.Status) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Documents renders single-record and summary documents.
type Documents interface {
	RecordPDF(ctx context.Context, s submission.Submission) ([]byte, error)
	RecordCard(s submission.Submission) ([]byte, error)
	SummaryTable(rows []submission.Submission, title string) ([]byte, error)
}

// Translator translates a message into a UI language.
type Translator interface {
	Translate(ctx context.Context, text, uiLang string) (translate.Result, error)
}

// AttachmentOpener opens a stored attachment by base name.
type AttachmentOpener interface {
	Open(name string) (*os.File, error)
}

// Options carries the presentation settings.
type Options struct {
	Title              string
	Credit             string
	DefaultDepartments []string
	MaxAttachments     int
	MaxUploadBytes     int64

	// TrustProxyHeaders takes the client address from X-Forwarded-For,
	// X-Real-IP or True-Client-IP. Only set it behind a proxy that
	// overwrites those headers.
	TrustProxyHeaders bool
}

// Deps are the components the handlers call into. Translator may be nil.
type Deps struct {
	Reader     Reader
	Workflow   Submitter
	Manager    RecordManager
	Documents  Documents
	Files      AttachmentOpener
	Translator Translator
	Gate       *auth.Gate
	Sessions   *session.Store
	Bundle     *i18n.Bundle
	Health     *health.Monitor
}

// Server holds the handlers.
type Server struct {
	deps   Deps
	opts   Options
	pages  map[string]*pageTemplate
	logger *zap.Logger
}

// NewServer creates the web server. It panics if the embedded templates do
// not parse.
func NewServer(deps Deps, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Bundle == nil {
		deps.Bundle = i18n.MustLoad()
	}
	if deps.Health == nil {
		deps.Health = health.NewMonitor(nil)
	}
	return &Server{
		deps:   deps,
		opts:   opts,
		pages:  mustParsePages(),
		logger: logger,
	}
}

// Routes builds the router.
//
// Layout:
//   - /health and /metrics bypass sessions
//   - /submit, /list and /map are public unless RESTRICT_ALL is set
//   - /admin/* and /dept require the admin login
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	if s.opts.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(metrics.InstrumentHandler)

	r.Method(http.MethodGet, "/health", s.deps.Health.Handler())
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.deps.Sessions.Middleware)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/submit", http.StatusSeeOther)
		})

		// Session
		r.Get("/login", s.loginPage)
		r.Post("/login", s.login)
		r.Get("/logout", s.logout)
		r.Post("/logout", s.logout)
		r.Get("/lang", s.setLang)
		r.Post("/lang", s.setLang)

		// Public sections
		r.Group(func(r chi.Router) {
			r.Use(s.requirePublic)

			r.Get("/submit", s.submitPage)
			r.Post("/submit", s.submit)
			r.Get("/list", s.listPage)
			r.Get("/list/export.csv", s.exportCSV)
			r.Get("/list/export.xlsx", s.exportXLSX)
			r.Get("/map", s.mapPage)
			r.Get("/map/points.json", s.mapPoints)
		})

		// Admin panel
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Get("/", s.adminPage)
			r.Post("/departments", s.addDepartment)
			r.Post("/departments/reset", s.resetDepartments)
			r.Get("/export.csv", s.adminExportCSV)
			r.Get("/summary.png", s.summaryPNG)
			r.Post("/submissions/{id}/status", s.changeStatus)
			r.Post("/submissions/{id}/delete", s.deleteSubmission)
			r.Get("/submissions/{id}/pdf", s.recordPDF)
			r.Get("/submissions/{id}/card.png", s.recordCard)
			r.Get("/submissions/{id}/contact", s.contact)
			r.Get("/submissions/{id}/translate", s.translateMessage)
			r.Get("/attachments/{name}", s.attachment)
		})

		// Department panel
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Get("/dept", s.deptPage)
			r.Post("/dept/login", s.deptLogin)
		})
	})

	return r
}
