package web

import (
	"net/http"

	"peopleconnect/internal/session"
)

type loginView struct {
	Next string
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"), "/admin")
	p := s.newPage(r, "login", loginView{Next: next})
	if next != "/admin" {
		p.Notice = p.T("login_required")
	}
	s.render(w, http.StatusOK, "login", p)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.PostFormValue("next"), "/admin")
	err := s.deps.Gate.Login(clientKey(r), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		status, key := s.classify(r, err)
		p := s.newPage(r, "login", loginView{Next: next})
		p.Error = p.T(key)
		s.render(w, status, "login", p)
		return
	}

	sess, err := s.deps.Sessions.Renew(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sess.SetAuthenticated()
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// logout clears the admin login and any department unlock.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	session.FromContext(r.Context()).Logout()
	http.Redirect(w, r, "/submit", http.StatusSeeOther)
}

func (s *Server) setLang(w http.ResponseWriter, r *http.Request) {
	lang := s.deps.Bundle.Normalize(r.FormValue("lang"))
	session.FromContext(r.Context()).SetLang(lang)
	http.Redirect(w, r, safeNext(r.FormValue("next"), "/submit"), http.StatusSeeOther)
}
