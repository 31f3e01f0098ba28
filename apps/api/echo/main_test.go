package echoapi_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/registro/apps/api/echo"
	"github.com/trezcool/registro/core"
	"github.com/trezcool/registro/core/course"
	"github.com/trezcool/registro/core/coursework"
	"github.com/trezcool/registro/core/dashboard"
	"github.com/trezcool/registro/core/notification"
	"github.com/trezcool/registro/core/user"
	"github.com/trezcool/registro/services/email"
	"github.com/trezcool/registro/services/files"
	"github.com/trezcool/registro/storage/database/inmem"
	"github.com/trezcool/registro/testutil"
)

type testApp struct {
	conf       *core.Config
	srv        *httptest.Server
	usrRepo    user.Repository
	courseRepo course.Repository
	cwRepo     coursework.Repository
	notifRepo  notification.Repository
	mailSvc    *emailsvc.ConsoleServiceMock
	mediaRoot  string
}

// newTestApp serves the app over inmem repositories, CSRF disabled unless opts say otherwise.
func newTestApp(t *testing.T, opts ...func(*Options)) *testApp {
	t.Helper()

	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	validate, translator := testutil.NewValidator()
	require.NoError(t, core.ParseEmailTemplates())

	db := inmemdb.Open()
	app := &testApp{
		conf:       conf,
		usrRepo:    inmemdb.NewUserRepository(db),
		courseRepo: inmemdb.NewCourseRepository(db),
		cwRepo:     inmemdb.NewCourseworkRepository(db),
		notifRepo:  inmemdb.NewNotificationRepository(db),
		mailSvc:    emailsvc.NewConsoleServiceMock(conf, logger),
		mediaRoot:  t.TempDir(),
	}
	storage := filesvc.NewLocalStorage(app.mediaRoot, conf.Storage.BaseURL)

	usrSvc := user.NewService(app.usrRepo)
	courseSvc := course.NewService(app.courseRepo)
	cwSvc := coursework.NewService(app.cwRepo, storage)
	notifSvc := notification.NewService(conf, app.notifRepo, app.courseRepo, app.mailSvc, logger)

	options := Options{DisableReqLogs: true, DisableCSRF: true, MediaRoot: app.mediaRoot}
	for _, opt := range opts {
		opt(&options)
	}
	server, err := NewServer(conf, logger, Deps{
		UserSvc:         usrSvc,
		CourseSvc:       courseSvc,
		CourseworkSvc:   cwSvc,
		NotificationSvc: notifSvc,
		DashboardSvc:    dashboard.NewService(courseSvc, cwSvc, notifSvc),
		Files:           storage,
		Validate:        validate,
		Translator:      translator,
	}, options)
	require.NoError(t, err)

	app.srv = httptest.NewServer(server)
	t.Cleanup(app.srv.Close)
	return app
}

func (app *testApp) createUser(t *testing.T, uname string, role user.Role) user.User {
	return testutil.CreateUser(t, app.usrRepo, uname, uname+"@registro.test", role, true)
}

type response struct {
	code     int
	location string
	body     string
}

// client keeps cookies between requests and never follows redirects.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (app *testApp) newClient(t *testing.T) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{
		t:    t,
		base: app.srv.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// login authenticates as uname with testutil.Password.
func (app *testApp) login(t *testing.T, uname string) *client {
	c := app.newClient(t)
	res := c.post("/login/", url.Values{"username": {uname}, "password": {testutil.Password}})
	require.Equal(t, http.StatusFound, res.code, res.body)
	return c
}

func (c *client) do(req *http.Request) response {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return response{code: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body)}
}

func (c *client) get(path string) response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	require.NoError(c.t, err)
	return c.do(req)
}

func (c *client) post(path string, form url.Values) response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

type upload struct {
	field    string
	filename string
	content  string
}

func (c *client) postMultipart(path string, form url.Values, files ...upload) response {
	c.t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, vs := range form {
		for _, v := range vs {
			require.NoError(c.t, w.WriteField(k, v))
		}
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(c.t, err)
		_, err = io.WriteString(fw, f.content)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, w.Close())

	req, err := http.NewRequest(http.MethodPost, c.base+path, &body)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

var csrfInputRe = regexp.MustCompile(`name="csrf" value="([^"]+)"`)

// csrfToken GETs path and returns the CSRF token of its form.
func (c *client) csrfToken(path string) string {
	c.t.Helper()
	res := c.get(path)
	require.Equal(c.t, http.StatusOK, res.code, res.body)
	m := csrfInputRe.FindStringSubmatch(res.body)
	require.Len(c.t, m, 2, "no csrf input on %s", path)
	return m[1]
}

// follow GETs the redirect target of res.
func (c *client) follow(res response) response {
	c.t.Helper()
	require.Equal(c.t, http.StatusFound, res.code, res.body)
	return c.get(res.location)
}
