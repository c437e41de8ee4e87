package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strconv"

	"peopleconnect/internal/auth"
	apperrors "peopleconnect/internal/errors"
	"peopleconnect/internal/export"
	"peopleconnect/internal/i18n"
	"peopleconnect/internal/session"
	"peopleconnect/internal/submission"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

type pageTemplate = template.Template

var pageNames = []string{"submit", "list", "map", "admin", "dept", "login", "error"}

var funcs = template.FuncMap{
	"base": filepath.Base,
	"coord": func(v *float64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	},
	"defaultMessage": export.DefaultMessage,
	"contains": func(list []string, v string) bool {
		for _, x := range list {
			if x == v {
				return true
			}
		}
		return false
	},
	"typeKey": func(t submission.Type) string {
		return "type_" + string(t)
	},
}

// mustParsePages pairs the layout with every page template.
func mustParsePages() map[string]*pageTemplate {
	pages := make(map[string]*pageTemplate, len(pageNames))
	for _, name := range pageNames {
		pages[name] = template.Must(template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html"))
	}
	return pages
}

// page is the data every template receives.
type page struct {
	Lang          string
	Dir           string
	Title         string
	Credit        string
	Languages     []i18n.Language
	Section       string
	Path          string
	Authenticated bool
	Error         string
	Notice        string
	Data          interface{}

	bundle *i18n.Bundle
}

// T translates key into the page language.
func (p *page) T(key string) string {
	return p.bundle.T(p.Lang, key)
}

func (s *Server) newPage(r *http.Request, section string, data interface{}) *page {
	sess := session.FromContext(r.Context())
	lang := s.deps.Bundle.Normalize(sess.Lang())
	return &page{
		Lang:          lang,
		Dir:           i18n.Dir(lang),
		Title:         s.opts.Title,
		Credit:        s.opts.Credit,
		Languages:     s.deps.Bundle.Languages(),
		Section:       section,
		Path:          r.URL.RequestURI(),
		Authenticated: sess.Authenticated(),
		Data:          data,
		bundle:        s.deps.Bundle,
	}
}

// render executes a page into a buffer first so a template error never
// produces a half-written response.
func (s *Server) render(w http.ResponseWriter, status int, name string, p *page) {
	var buf bytes.Buffer
	if err := s.pages[name].Execute(&buf, p); err != nil {
		s.logger.Error("❌ Template failed", zap.String("page", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// fail maps err to a status and renders the error page.
//
// Mapping:
//   - ValidationError: 422 with the locale message of its key
//   - AuthError: 401, or 429 when throttled
//   - anything else: 500 with a generic message, logged
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, key := s.classify(r, err)
	s.errorPage(w, r, status, key)
}

func (s *Server) classify(r *http.Request, err error) (int, string) {
	switch {
	case apperrors.IsValidation(err):
		return http.StatusUnprocessableEntity, apperrors.ValidationKey(err)
	case apperrors.IsAuth(err):
		key := apperrors.AuthKey(err)
		if key == auth.KeyTooManyAttempts {
			return http.StatusTooManyRequests, key
		}
		return http.StatusUnauthorized, key
	default:
		s.logger.Error("❌ Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		return http.StatusInternalServerError, "server_error"
	}
}

func (s *Server) errorPage(w http.ResponseWriter, r *http.Request, status int, key string) {
	p := s.newPage(r, "", nil)
	p.Error = p.T(key)
	s.render(w, status, "error", p)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.errorPage(w, r, http.StatusNotFound, "not_found")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// download sends data as a file attachment.
func download(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
