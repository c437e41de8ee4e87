package web

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"peopleconnect/internal/attachments"
	"peopleconnect/internal/auth"
	"peopleconnect/internal/cache"
	"peopleconnect/internal/export"
	"peopleconnect/internal/health"
	"peopleconnect/internal/i18n"
	"peopleconnect/internal/manager"
	"peopleconnect/internal/query"
	"peopleconnect/internal/session"
	"peopleconnect/internal/storage"
	"peopleconnect/internal/submission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv     *httptest.Server
	client  *http.Client
	store   *storage.Storage
	cache   *cache.ReadCache
	uploads string
}

func newEnv(t *testing.T, settings auth.Settings, tweaks ...func(*Options)) *testEnv {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := storage.Open(ctx, filepath.Join(dir, "submissions.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	uploads := filepath.Join(dir, "uploads")
	files, err := attachments.New(uploads, nil)
	require.NoError(t, err)

	readCache := cache.New(store.List, time.Minute)
	workflow := submission.NewWorkflow(store, files, readCache, submission.Limits{MaxAttachments: 3, MaxUploadBytes: 1 << 20}, nil)
	mgr := manager.New(store, readCache, nil, nil)

	if settings.Username == "" {
		settings.Username, settings.Password = "admin", "secret"
	}
	if settings.AttemptsPerMinute == 0 {
		settings.AttemptsPerMinute = 100
	}

	opts := Options{
		Title:              "People Connect",
		Credit:             "credit",
		DefaultDepartments: []string{"Roads", "Water"},
		MaxAttachments:     3,
		MaxUploadBytes:     1 << 20,
	}
	for _, tweak := range tweaks {
		tweak(&opts)
	}

	server := NewServer(Deps{
		Reader:    readCache,
		Workflow:  workflow,
		Manager:   mgr,
		Documents: &export.Documents{Title: "People Connect", Credit: "credit"},
		Files:     files,
		Gate:      auth.NewGate(settings, nil),
		Sessions: session.NewStore(session.Options{
			Secret:      "test-secret",
			TTL:         time.Hour,
			DefaultLang: i18n.DefaultLang,
			Departments: []string{"Roads", "Water"},
		}, nil),
		Bundle: i18n.MustLoad(),
		Health: health.NewMonitor(store),
	}, opts, nil)

	srv := httptest.NewServer(server.Routes())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{srv: srv, client: client, store: store, cache: readCache, uploads: uploads}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.PostForm(e.srv.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	resp, _ := e.post(t, "/login", url.Values{"username": {"admin"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func (e *testEnv) seed(t *testing.T, subs ...submission.Submission) {
	t.Helper()
	for i := range subs {
		s := subs[i]
		if s.Status == "" {
			s.Status = submission.StatusNew
		}
		if s.CreatedAt == "" {
			s.CreatedAt = "2025-03-04T05:06:07.000000"
		}
		_, err := e.store.Insert(context.Background(), &s)
		require.NoError(t, err)
	}
	e.cache.Invalidate()
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func row(name, typ, dept, address string) submission.Submission {
	return submission.Submission{
		Type: submission.Type(typ), Department: dept, Name: name,
		Mobile: "07501234567", Address: address, Message: "message from " + name,
	}
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile("attachments", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func aliHassan() map[string]string {
	return map[string]string{
		"type":       "Complaint",
		"department": "Roads",
		"name":       "Ali Hassan",
		"mobile":     "0770 123 4567",
		"address":    "Erbil",
		"message":    "Pothole on Main St",
	}
}

func TestSubmitCreatesSubmission(t *testing.T) {
	env := newEnv(t, auth.Settings{})

	body, contentType := multipartBody(t, aliHassan(), map[string][]byte{"photo.png": []byte("png-bytes")})
	resp, err := env.client.Post(env.srv.URL+"/submit", contentType, body)
	require.NoError(t, err)
	readBody(t, resp)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/submit?submitted=1", resp.Header.Get("Location"))

	sub, found, err := env.store.Get(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Ali Hassan", sub.Name)
	assert.Equal(t, submission.StatusNew, sub.Status)
	assert.Nil(t, sub.Lat)

	paths := sub.AttachmentPaths()
	require.Len(t, paths, 1)
	assert.True(t, strings.HasSuffix(paths[0], "_photo.png"))
	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, page := env.get(t, "/submit?submitted=1")
	assert.Contains(t, page, "Submitted successfully!")
}

func TestSubmitRejectsShortMobile(t *testing.T) {
	env := newEnv(t, auth.Settings{})

	fields := aliHassan()
	fields["mobile"] = "123"
	body, contentType := multipartBody(t, fields, map[string][]byte{"photo.png": []byte("png-bytes")})
	resp, err := env.client.Post(env.srv.URL+"/submit", contentType, body)
	require.NoError(t, err)
	page := readBody(t, resp)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, page, "Mobile number looks invalid")
	assert.Contains(t, page, `value="Ali Hassan"`, "entered values are kept")

	rows, err := env.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)

	entries, err := os.ReadDir(env.uploads)
	require.NoError(t, err)
	assert.Empty(t, entries, "no attachment is written for a rejected submission")
}

func TestSubmitRejectsBadCoordinates(t *testing.T) {
	env := newEnv(t, auth.Settings{})

	form := url.Values{}
	for k, v := range aliHassan() {
		form.Set(k, v)
	}
	form.Set("lat", "north")
	resp, page := env.post(t, "/submit", form)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, page, "Coordinates are out of range.")

	form.Set("lat", "95")
	form.Set("lon", "44")
	resp, _ = env.post(t, "/submit", form)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAdminRequiresLogin(t *testing.T) {
	env := newEnv(t, auth.Settings{})

	resp, _ := env.get(t, "/admin")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fadmin", resp.Header.Get("Location"))

	resp, _ = env.post(t, "/admin/submissions/1/delete", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/login"))
}

func TestLoginFailures(t *testing.T) {
	env := newEnv(t, auth.Settings{AttemptsPerMinute: 2})

	resp, page := env.post(t, "/login", url.Values{"username": {"admin"}, "password": {"nope"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, page, "Wrong username or password.")

	env.post(t, "/login", url.Values{"username": {"admin"}, "password": {"nope"}})

	resp, page = env.post(t, "/login", url.Values{"username": {"admin"}, "password": {"secret"}})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, page, "Too many attempts")
}

// wrongLogins posts n failed logins, each claiming a different forwarded
// address, and returns the status codes.
func (e *testEnv) wrongLogins(t *testing.T, n int) []int {
	t.Helper()
	var codes []int
	for i := 0; i < n; i++ {
		form := url.Values{"username": {"admin"}, "password": {"nope"}}
		req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/login", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		ip := fmt.Sprintf("203.0.113.%d", i+1)
		req.Header.Set("X-Forwarded-For", ip)
		req.Header.Set("X-Real-IP", ip)
		req.Header.Set("True-Client-IP", ip)
		resp, err := e.client.Do(req)
		require.NoError(t, err)
		readBody(t, resp)
		codes = append(codes, resp.StatusCode)
	}
	return codes
}

func TestLoginThrottleIgnoresForwardedHeaders(t *testing.T) {
	env := newEnv(t, auth.Settings{AttemptsPerMinute: 2})

	codes := env.wrongLogins(t, 4)
	assert.Equal(t, []int{
		http.StatusUnauthorized, http.StatusUnauthorized,
		http.StatusTooManyRequests, http.StatusTooManyRequests,
	}, codes)
}

func TestLoginThrottleUsesForwardedHeadersBehindProxy(t *testing.T) {
	env := newEnv(t, auth.Settings{AttemptsPerMinute: 2}, func(o *Options) { o.TrustProxyHeaders = true })

	for _, code := range env.wrongLogins(t, 4) {
		assert.Equal(t, http.StatusUnauthorized, code, "each forwarded address has its own bucket")
	}
}

func TestLoginRenewsSession(t *testing.T) {
	env := newEnv(t, auth.Settings{})
	base, err := url.Parse(env.srv.URL)
	require.NoError(t, err)

	env.get(t, "/login")
	before := sessionCookie(t, env.client.Jar.Cookies(base))

	env.login(t)
	after := sessionCookie(t, env.client.Jar.Cookies(base))
	assert.NotEqual(t, before.Value, after.Value)

	// The cookie issued before login does not carry the login.
	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/admin", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: before.Value})
	resp, err := (&http.Client{CheckRedirect: env.client.CheckRedirect}).Do(req)
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = env.get(t, "/admin")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func sessionCookie(t *testing.T, cookies []*http.Cookie) *http.Cookie {
	t.Helper()
	for _, c := range cookies {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestContactLinksCarryOperatorText(t *testing.T) {
	env := newEnv(t, auth.Settings{})
	env.seed(t, row("Ali", "Complaint", "Roads", "Erbil"))
	env.login(t)

	_, page := env.get(t, "/admin")
	assert.Contains(t, page, `action="/admin/submissions/1/contact"`)
	assert.Contains(t, page, `value="Regarding your submission #1"`)

	text := url.QueryEscape("Fixed today & thanks")
	resp, _ := env.get(t, "/admin/submissions/1/contact?channel=whatsapp&text="+text)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "https://wa.me/07501234567?text=Fixed%20today%20%26%20thanks", resp.Header.Get("Location"))

	resp, _ = env.get(t, "/admin/submissions/1/contact?channel=sms&text="+text)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "sms:07501234567?body=Fixed%20today%20%26%20thanks", resp.Header.Get("Location"))

	resp, _ = env.get(t, "/admin/submissions/1/contact?channel=sms&text=")
	assert.Equal(t, "sms:07501234567?body=Regarding%20your%20submission%20%231", resp.Header.Get("Location"))

	resp, _ = env.get(t, "/admin/submissions/1/contact?channel=fax")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = env.get(t, "/admin/submissions/9/contact?channel=sms")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLoginRedirectsToNext(t *testing.T) {
	env := newEnv(t, auth.Settings{})

	resp, _ := env.post(t, "/login", url.Values{"username": {"admin"}, "password": {"secret"}, "next": {"/dept"}})
	assert.Equal(t, "/dept", resp.Header.Get("Location"))

	resp, _ = env.post(t, "/login", url.Values{"username": {"admin"}, "password": {"secret"}, "next": {"//evil.example"}})
	assert.Equal(t, "/admin", resp.Header.Get("Location"))
}

func TestAdminTransitionAndDelete(t *testing.T) {
	env := newEnv(t, auth.Settings{})
	for i := 1; i <= 8; i++ {
		env.seed(t, row(fmt.Sprintf("citizen %d", i), "Complaint", "Roads", "Erbil"))
	}
	env.login(t)

	resp, _ := env.post(t, "/admin/submissions/7/status", url.Values{"status": {"Resolved"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))

	sub, found, err := env.store.Get(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, submission.StatusResolved, sub.Status)
	assert.Equal(t, "citizen 7", sub.Name)

	resp, _ = env.post(t, "/admin/submissions/8/delete", url.Values{"next": {"/admin?status=New"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin?status=New", resp.Header.Get("Location"))

	_, found, err = env.store.Get(context.Background(), 8)
	require.NoError(t, err)
	assert.False(t, found)

	rows, err := env.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 7)

	// Deleting again and changing a missing row are silent no-ops.
	resp, _ = env.post(t, "/admin/submissions/8/delete", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = env.post(t, "/admin/submissions/8/status", url.Values{"status": {"Rejected"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = env.post(t, "/admin/submissions/7/status", url.Values{"status": {"Closed"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, page := env.get(t, "/admin")
	assert.Contains(t, page, "citizen 7")
	assert.NotContains(t, page, "citizen 8")
}

func TestListFilterMatchesExports(t *testing.T) {
	env := newEnv(t, auth.Settings{})
	env.seed(t,
		row("Ali", "Complaint", "Roads", "Erbil"),
		row("Sara", "Request", "Water", "Erbil"),
		row("Omar", "Complaint", "Water", "Duhok"),
		row("Lana", "Complaint", "Roads", "erbil centre"),
	)

	filter := "?type=Complaint&q=ERBIL"
	resp, page := env.get(t, "/list"+filter)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, "Ali")
	assert.Contains(t, page, "Lana")
	assert.NotContains(t, page, "Omar")
	assert.NotContains(t, page, "message from Sara")

	resp, body := env.get(t, "/list/export.csv"+filter)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), export.CSVFileName)
	records, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3, "header plus the two filtered rows")

	resp, _ = env.get(t, "/list/export.xlsx"+filter)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), export.XLSXFileName)
}

func TestMapPointsSkipMissingCoordinates(t *testing.T) {
	env := newEnv(t, auth.Settings{})

	resp, page := env.get(t, "/map")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, "No submissions with a location yet.")

	lat1, lon1, lat2, lon2, onlyLat := 36.0, 44.0, 37.0, 45.0, 35.0
	a := row("A", "Complaint", "Roads", "Erbil")
	a.Lat, a.Lon = &lat1, &lon1
	b := row("B", "Complaint", "Roads", "Erbil")
	b.Lat, b.Lon = &lat2, &lon2
	c := row("C", "Complaint", "Roads", "Erbil")
	c.Lat = &onlyLat
	env.seed(t, a, b, c, row("D", "Request", "Water", "Duhok"))

	resp, body := env.get(t, "/map/points.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view query.MapView
	require.NoError(t, json.Unmarshal([]byte(body), &view))
	require.Len(t, view.Points, 2)
	assert.InDelta(t, 36.5, view.CenterLat, 1e-9)
	assert.InDelta(t, 44.5, view.CenterLon, 1e-9)
	assert.Equal(t, query.DefaultZoom, view.Zoom)
}

func TestRestrictAllGatesPublicTabs(t *testing.T) {
	env := newEnv(t, auth.Settings{RestrictAll: true})

	for _, path := range []string{"/submit", "/list", "/map"} {
		resp, _ := env.get(t, path)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
	}

	env.login(t)
	resp, _ := env.get(t, "/list")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.post(t, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = env.get(t, "/list")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestDepartmentPanel(t *testing.T) {
	env := newEnv(t, auth.Settings{DeptPasswords: map[string]string{"Roads": "asphalt"}})
	env.seed(t, row("Ali", "Complaint", "Roads", "Erbil"), row("Sara", "Request", "Water", "Erbil"))
	env.login(t)

	resp, page := env.get(t, "/dept?department=Roads")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, `action="/dept/login"`)
	assert.NotContains(t, page, "message from Ali")

	resp, page = env.post(t, "/dept/login", url.Values{"department": {"Roads"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, page, "Wrong username or password.")

	resp, _ = env.post(t, "/dept/login", url.Values{"department": {"Water"}, "password": {"asphalt"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "a department without a password stays locked")

	resp, _ = env.post(t, "/dept/login", url.Values{"department": {"Roads"}, "password": {"asphalt"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dept?department=Roads", resp.Header.Get("Location"))

	_, page = env.get(t, "/dept")
	assert.Contains(t, page, "message from Ali")
	assert.NotContains(t, page, "message from Sara")

	// Logout clears the department unlock too.
	env.post(t, "/logout", nil)
	env.login(t)
	_, page = env.get(t, "/dept?department=Roads")
	assert.Contains(t, page, `action="/dept/login"`)
}

func TestDepartmentPanelOpenWithoutPasswords(t *testing.T) {
	env := newEnv(t, auth.Settings{})
	env.seed(t, row("Ali", "Complaint", "Roads", "Erbil"))
	env.login(t)

	_, page := env.get(t, "/dept?department=Roads")
	assert.NotContains(t, page, `action="/dept/login"`)
	assert.Contains(t, page, "message from Ali")
}

func TestSessionDepartments(t *testing.T) {
	env := newEnv(t, auth.Settings{})
	env.login(t)

	resp, _ := env.post(t, "/admin/departments", url.Values{"department": {"Parks"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, page := env.get(t, "/submit")
	assert.Contains(t, page, `<option value="Parks"`)

	env.post(t, "/admin/departments/reset", nil)
	_, page = env.get(t, "/submit")
	assert.NotContains(t, page, `<option value="Parks"`)
}

func TestLanguageSwitch(t *testing.T) {
	env := newEnv(t, auth.Settings{})

	_, page := env.get(t, "/submit")
	assert.Contains(t, page, `dir="ltr"`)

	resp, _ := env.post(t, "/lang", url.Values{"lang": {"ar"}, "next": {"/list"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/list", resp.Header.Get("Location"))

	_, page = env.get(t, "/list")
	assert.Contains(t, page, `dir="rtl"`)
	assert.Contains(t, page, `lang="ar"`)
}

func TestRecordDownloads(t *testing.T) {
	env := newEnv(t, auth.Settings{})
	env.seed(t, row("Ali", "Complaint", "Roads", "Erbil"))
	env.login(t)

	resp, body := env.get(t, "/admin/submissions/1/pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "submission_1.pdf")
	assert.True(t, strings.HasPrefix(body, "%PDF-"))

	resp, _ = env.get(t, "/admin/submissions/1/card.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp, _ = env.get(t, "/admin/summary.png")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.get(t, "/admin/summary.png?type=Project")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.get(t, "/admin/export.csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), export.AdminCSVFileName)
	assert.Contains(t, body, "Ali")

	resp, _ = env.get(t, "/admin/submissions/99/pdf")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.get(t, "/admin/submissions/1/translate")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "translation is disabled")
}

func TestAttachmentDownload(t *testing.T) {
	env := newEnv(t, auth.Settings{})

	body, contentType := multipartBody(t, aliHassan(), map[string][]byte{"report.pdf": []byte("%PDF-report")})
	resp, err := env.client.Post(env.srv.URL+"/submit", contentType, body)
	require.NoError(t, err)
	readBody(t, resp)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	sub, _, err := env.store.Get(context.Background(), 1)
	require.NoError(t, err)
	name := filepath.Base(sub.AttachmentPaths()[0])

	env.login(t)
	resp, data := env.get(t, "/admin/attachments/"+url.PathEscape(name))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "%PDF-report", data)

	resp, _ = env.get(t, "/admin/attachments/missing.pdf")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.get(t, "/admin/attachments/.hidden")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newEnv(t, auth.Settings{RestrictAll: true})

	resp, body := env.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"healthy"`)
	assert.Empty(t, resp.Cookies(), "health checks do not start sessions")

	env.get(t, "/login")
	resp, body = env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "peopleconnect_http_requests_total")
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"/list?type=Complaint", "/list?type=Complaint"},
		{"", "/admin"},
		{"https://evil.example", "/admin"},
		{"//evil.example", "/admin"},
		{"/\\evil.example", "/admin"},
		{"admin", "/admin"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeNext(tt.next, "/admin"), tt.next)
	}
}
