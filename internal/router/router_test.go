package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"folio/internal/db"
	"folio/internal/handlers"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/services"
	"folio/internal/utils"
	"folio/internal/validation"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const stubView = `view:{{.View}} path:{{.CurrentPath}}{{range .Flashes}} flash[{{.Level}}]:{{.Message}}{{end}}{{with .Error}} error:{{.}}{{end}}`

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	n       int
}

func (m *memStorage) Save(ctx context.Context, dir string, u *services.Upload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := io.ReadAll(u.Body)
	if err != nil {
		return "", err
	}
	m.n++
	ref := fmt.Sprintf("%s/%d%s", dir, m.n, u.Ext())
	m.objects[ref] = b
	return ref, nil
}

func (m *memStorage) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	return nil
}

func (m *memStorage) URL(ref string) string { return "/media/" + ref }

type app struct {
	t       *testing.T
	db      *gorm.DB
	engine  *gin.Engine
	storage *memStorage
}

// stubRenderer 每个页面输出页面名、flash 和错误信息，便于断言
func stubRenderer() multitemplate.Renderer {
	r := multitemplate.NewRenderer()
	for _, name := range handlers.Views {
		src := strings.Replace(stubView, "{{.View}}", name, 1)
		r.AddFromStringsFuncs(name, handlers.FuncMap(nil), src)
	}
	return r
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace("router_" + t.Name())
	gdb, err := db.OpenMemory(name)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log := logrus.New()
	log.SetOutput(io.Discard)
	st := &memStorage{objects: map[string][]byte{}}

	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.RequestID())
	r.Use(sessions.Sessions("folio_session", cookie.NewStore([]byte("test-secret"))))
	r.HTMLRender = stubRenderer()
	r.Use(middleware.LoadUser(gdb))
	RegisterRoutes(r, Deps{
		DB:       gdb,
		Log:      log,
		Storage:  st,
		Cache:    utils.NewCache(16),
		CacheTTL: time.Minute,
		SiteURL:  "https://example.com",
		SiteName: "Folio",
	})
	return &app{t: t, db: gdb, engine: r, storage: st}
}

// session 保存一个客户端的 cookie
type session struct {
	a       *app
	cookies map[string]*http.Cookie
}

func (a *app) anon() *session { return &session{a: a, cookies: map[string]*http.Cookie{}} }

func (s *session) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.a.engine.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		s.cookies[c.Name] = c
	}
	return w
}

func (s *session) get(path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return s.do(req)
}

func (s *session) post(path string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return s.do(req)
}

func (s *session) postMultipart(path string, fields map[string]string, file, filename string, content []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(s.a.t, mw.WriteField(k, v))
	}
	if file != "" {
		fw, err := mw.CreateFormFile(file, filename)
		require.NoError(s.a.t, err)
		_, err = fw.Write(content)
		require.NoError(s.a.t, err)
	}
	require.NoError(s.a.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

func (a *app) user(name string, super bool) models.User {
	a.t.Helper()
	accounts := services.NewAccountService(a.db)
	if super {
		u, _, err := accounts.EnsureSuperuser(context.Background(), name, "s3cret-pass")
		require.NoError(a.t, err)
		return *u
	}
	u, err := accounts.Register(context.Background(), services.RegisterInput{Username: name, Password: "s3cret-pass", Password2: "s3cret-pass"})
	require.NoError(a.t, err)
	return *u
}

func (a *app) login(name string, super bool) (*session, models.User) {
	a.t.Helper()
	u := a.user(name, super)
	s := a.anon()
	w := s.post("/login", url.Values{"username": {name}, "password": {"s3cret-pass"}})
	require.Equal(a.t, http.StatusFound, w.Code, w.Body.String())
	return s, u
}

func (a *app) project(title string) models.Project {
	a.t.Helper()
	p := models.Project{
		Title:       title,
		Slug:        utils.Slugify(title),
		Description: "about " + title,
		Content:     "# " + title,
	}
	require.NoError(a.t, a.db.Create(&p).Error)
	return p
}

func (a *app) count(model any, where string, args ...any) int64 {
	var n int64
	require.NoError(a.t, a.db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

func TestHealthz(t *testing.T) {
	a := newApp(t)
	w := a.anon().get("/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSEOEndpoints(t *testing.T) {
	a := newApp(t)
	a.project("Sales Dashboard")
	s := a.anon()

	w := s.get("/robots.txt")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Disallow: /login")
	assert.Contains(t, w.Body.String(), "Sitemap: https://example.com/sitemap.xml")

	w = s.get("/sitemap.xml")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, w.Body.String(), "<loc>https://example.com/projects/sales-dashboard</loc>")

	w = s.get("/feed.xml")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/rss+xml")
	body := w.Body.String()
	assert.Contains(t, body, "<title>Folio</title>")
	assert.Contains(t, body, "<title>Sales Dashboard</title>")
	assert.Contains(t, body, "&lt;h1")
}

func TestVoteEndpoint(t *testing.T) {
	a := newApp(t)
	p := a.project("Vote Me")
	path := fmt.Sprintf("/projects/%d/vote", p.ID)

	t.Run("anonymous json client gets 401 and nothing is written", func(t *testing.T) {
		w := a.anon().post(path, url.Values{"vote_type": {"like"}}, "Accept", "application/json")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Zero(t, a.count(&models.Vote{}, "project_id = ?", p.ID))
	})

	t.Run("anonymous browser is sent to login", func(t *testing.T) {
		w := a.anon().post(path, url.Values{"vote_type": {"like"}})
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login?next="+url.QueryEscape(path), w.Header().Get("Location"))
		assert.Zero(t, a.count(&models.Vote{}, "project_id = ?", p.ID))
	})

	s, _ := a.login("voter", false)

	t.Run("toggle like on and off", func(t *testing.T) {
		w := s.post(path, url.Values{"vote_type": {"like"}}, "Accept", "application/json")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"likes":1,"dislikes":0,"user_vote":"like"}`, w.Body.String())

		w = s.post(path, url.Values{"vote_type": {"dislike"}}, "Accept", "application/json")
		assert.JSONEq(t, `{"likes":0,"dislikes":1,"user_vote":"dislike"}`, w.Body.String())

		w = s.post(path, url.Values{"vote_type": {"dislike"}}, "Accept", "application/json")
		assert.JSONEq(t, `{"likes":0,"dislikes":0,"user_vote":null}`, w.Body.String())
	})

	t.Run("get is rejected", func(t *testing.T) {
		w := s.get(path, "Accept", "application/json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Invalid request"}`, w.Body.String())
	})

	t.Run("invalid type and missing project", func(t *testing.T) {
		w := s.post(path, url.Values{"vote_type": {"love"}}, "Accept", "application/json")
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = s.post("/projects/999/vote", url.Values{"vote_type": {"like"}}, "Accept", "application/json")
		assert.Equal(t, http.StatusNotFound, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.NotEmpty(t, body["error"])
	})
}

func TestDetailCountsViews(t *testing.T) {
	a := newApp(t)
	p := a.project("Viewed Project")
	s := a.anon()

	for i := 0; i < 3; i++ {
		w := s.get("/projects/" + p.Slug)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "view:projects/detail.html")
	}
	var got models.Project
	require.NoError(t, a.db.First(&got, p.ID).Error)
	assert.EqualValues(t, 3, got.Views)

	w := s.get("/projects/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "view:error.html")
}

func TestCommentFlow(t *testing.T) {
	a := newApp(t)
	p := a.project("Commented")
	path := fmt.Sprintf("/projects/%d/comment", p.ID)

	w := a.anon().post(path, url.Values{"content": {"hello"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/login?next="))
	assert.Zero(t, a.count(&models.Comment{}, "project_id = ?", p.ID))

	s, u := a.login("commenter", false)
	w = s.post(path, url.Values{"content": {"   "}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Zero(t, a.count(&models.Comment{}, "project_id = ?", p.ID))

	w = s.post(path, url.Values{"content": {"Nice work"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/projects/"+p.Slug+"#comments", w.Header().Get("Location"))
	assert.EqualValues(t, 1, a.count(&models.Comment{}, "project_id = ? AND user_id = ? AND is_approved = ?", p.ID, u.ID, true))

	w = s.get("/projects/" + p.Slug)
	assert.Contains(t, w.Body.String(), "flash[success]:Comment added successfully.")

	var c models.Comment
	require.NoError(t, a.db.Where("project_id = ?", p.ID).First(&c).Error)

	other, _ := a.login("stranger", false)
	w = other.post(fmt.Sprintf("/comments/%d/delete", c.ID), nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.EqualValues(t, 1, a.count(&models.Comment{}, "id = ?", c.ID))

	admin, _ := a.login("admin", true)
	w = admin.post(fmt.Sprintf("/comments/%d/approve", c.ID), url.Values{"approved": {"false"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Zero(t, a.count(&models.Comment{}, "id = ? AND is_approved = ?", c.ID, true))

	w = s.post(fmt.Sprintf("/comments/%d/delete", c.ID), nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Zero(t, a.count(&models.Comment{}, "id = ?", c.ID))
}

func TestSuperuserGate(t *testing.T) {
	a := newApp(t)

	w := a.anon().get("/projects/create")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next="+url.QueryEscape("/projects/create"), w.Header().Get("Location"))

	s, _ := a.login("plain", false)
	w = s.get("/projects/create")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	w = s.get("/")
	assert.Contains(t, w.Body.String(), "flash[error]:You do not have permission to perform this action.")

	admin, _ := a.login("boss", true)
	w = admin.get("/projects/create")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "view:projects/form.html")
}

func TestProjectCreateAndConflict(t *testing.T) {
	a := newApp(t)
	admin, _ := a.login("boss", true)
	form := url.Values{
		"title":       {"My Project"},
		"description": {"short"},
		"content":     {"**long**"},
		"is_featured": {"true"},
	}

	w := admin.post("/projects/create", form)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/projects/my-project", w.Header().Get("Location"))

	var p models.Project
	require.NoError(t, a.db.Where("slug = ?", "my-project").First(&p).Error)
	assert.True(t, p.IsFeatured)

	w = admin.post("/projects/create", form)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "error:Slug already exists")
	assert.EqualValues(t, 1, a.count(&models.Project{}, "slug = ?", "my-project"))

	w = admin.post("/projects/create", url.Values{"title": {"No body"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "view:projects/form.html")

	w = admin.post("/projects/my-project/edit", url.Values{"title": {"Renamed"}, "description": {"d"}, "content": {"c"}})
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/projects/my-project", w.Header().Get("Location"))

	w = admin.get("/projects/my-project/delete")
	assert.Contains(t, w.Body.String(), "view:confirm_delete.html")
	w = admin.post("/projects/my-project/delete", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Zero(t, a.count(&models.Project{}, "slug = ?", "my-project"))
}

func TestProjectListPages(t *testing.T) {
	a := newApp(t)
	for i := 0; i < 11; i++ {
		a.project(fmt.Sprintf("Listed %d", i))
	}
	s := a.anon()
	for _, q := range []string{"", "?page=abc", "?page=99", "?search=listed&page=2"} {
		w := s.get("/projects" + q)
		assert.Equal(t, http.StatusOK, w.Code, q)
		assert.Contains(t, w.Body.String(), "view:projects/list.html")
	}
	assert.Equal(t, http.StatusOK, s.get("/").Code)
	assert.Equal(t, http.StatusNotFound, s.get("/projects/category/nope").Code)
}

func TestImageUpload(t *testing.T) {
	a := newApp(t)
	p := a.project("Gallery")
	admin, _ := a.login("boss", true)
	path := "/projects/" + p.Slug + "/images"

	w := admin.postMultipart(path, map[string]string{"title": "shot", "is_cover": "true"}, "image", "shot.png", pngBytes)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, path, w.Header().Get("Location"))
	assert.EqualValues(t, 1, a.count(&models.ProjectImage{}, "project_id = ? AND is_cover = ?", p.ID, true))
	assert.Len(t, a.storage.objects, 1)

	w = admin.postMultipart(path, map[string]string{"title": "fake"}, "image", "fake.png", []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "view:projects/images.html")
	assert.EqualValues(t, 1, a.count(&models.ProjectImage{}, "project_id = ?", p.ID))

	w = admin.get(path)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterLoginLogout(t *testing.T) {
	a := newApp(t)
	s := a.anon()

	w := s.post("/register", url.Values{"username": {"newbie"}, "password1": {"12345678"}, "password2": {"12345678"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "view:auth/register.html")

	w = s.post("/register", url.Values{"username": {"newbie"}, "password1": {"long-enough-1"}, "password2": {"long-enough-1"}})
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.EqualValues(t, 1, a.count(&models.Profile{}, "user_id = (SELECT id FROM users WHERE username = ?)", "newbie"))

	w = s.get("/me/skills")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.get("/logout")
	assert.Equal(t, http.StatusFound, w.Code)
	w = s.get("/me/skills")
	assert.Equal(t, http.StatusFound, w.Code)

	w = s.post("/register", url.Values{"username": {"newbie"}, "password1": {"long-enough-1"}, "password2": {"long-enough-1"}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.post("/login", url.Values{"username": {"newbie"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "view:auth/login.html")

	w = s.post("/login", url.Values{"username": {"newbie"}, "password": {"long-enough-1"}, "next": {"//evil.example"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestAboutWithoutOwner(t *testing.T) {
	a := newApp(t)
	s := a.anon()
	assert.Equal(t, http.StatusOK, s.get("/about").Code)
	assert.Equal(t, http.StatusNotFound, s.get("/profile").Code)

	a.user("owner", true)
	assert.Equal(t, http.StatusOK, s.get("/profile").Code)
}

func TestExperienceRoutes(t *testing.T) {
	a := newApp(t)
	admin, _ := a.login("boss", true)

	w := admin.post("/experience/create", url.Values{
		"title": {"Analyst"}, "company": {"Acme"}, "start_date": {"2021-01-01"},
		"end_date": {"2022-01-01"}, "current": {"true"}, "description": {"numbers"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, a.count(&models.Experience{}, "1 = 1"))

	w = admin.post("/experience/create", url.Values{
		"title": {"Analyst"}, "company": {"Acme"}, "start_date": {"2021-01-01"},
		"current": {"true"}, "description": {"numbers"},
	})
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/about", w.Header().Get("Location"))

	var e models.Experience
	require.NoError(t, a.db.First(&e).Error)
	path := fmt.Sprintf("/experience/%d/delete", e.ID)
	assert.Contains(t, admin.get(path).Body.String(), "view:confirm_delete.html")
	w = admin.post(path, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Zero(t, a.count(&models.Experience{}, "1 = 1"))
}
