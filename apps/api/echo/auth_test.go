package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/registro/core/user"
	"github.com/trezcool/registro/testutil"
)

func Test_authApi_anonymous(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)

	tests := []struct {
		name         string
		path         string
		wantLocation string
	}{
		{name: "home", path: "/", wantLocation: "/login/"},
		{name: "course list", path: "/cursos/", wantLocation: "/login/?next=%2Fcursos"},
		{name: "course create", path: "/cursos/crear/", wantLocation: "/login/?next=%2Fcursos%2Fcrear"},
		{name: "notifications", path: "/notificaciones/nueva/", wantLocation: "/login/?next=%2Fnotificaciones%2Fnueva"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.get(tt.path)
			assert.Equal(t, http.StatusFound, res.code)
			assert.Equal(t, tt.wantLocation, res.location)
		})
	}
}

func Test_authApi_register(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "taken", user.RoleStudent)

	form := func(uname, pwd1, pwd2, role string) url.Values {
		return url.Values{
			"username":  {uname},
			"email":     {uname + "@registro.test"},
			"password1": {pwd1},
			"password2": {pwd2},
			"role":      {role},
		}
	}

	tests := []struct {
		name       string
		form       url.Values
		wantCode   int
		wantInBody string
	}{
		{name: "password mismatch", form: form("ana", testutil.Password, "otra-cosa-99", "student"), wantCode: http.StatusOK, wantInBody: "Los dos campos de contraseña no coinciden."},
		{name: "numeric password", form: form("ana", "12345678901", "12345678901", "student"), wantCode: http.StatusOK},
		{name: "common password", form: form("ana", "password123", "password123", "student"), wantCode: http.StatusOK},
		{name: "missing role", form: form("ana", testutil.Password, testutil.Password, ""), wantCode: http.StatusOK},
		{name: "unknown role", form: form("ana", testutil.Password, testutil.Password, "admin"), wantCode: http.StatusOK},
		{name: "username taken", form: form("TAKEN", testutil.Password, testutil.Password, "student"), wantCode: http.StatusOK, wantInBody: "Ya existe un usuario con este nombre."},
		{name: "ok", form: form("Ana", testutil.Password, testutil.Password, "teacher"), wantCode: http.StatusFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := app.newClient(t)
			res := c.post("/register/", tt.form)
			assert.Equal(t, tt.wantCode, res.code, res.body)
			if tt.wantInBody != "" {
				assert.Contains(t, res.body, tt.wantInBody)
			}
			if tt.wantCode == http.StatusFound {
				assert.Equal(t, "/login/", res.location)
				assert.Contains(t, c.follow(res).body, "Usuario registrado. Ahora puedes iniciar sesión.")
			}
		})
	}

	// the chosen role is assigned explicitly
	usr, err := app.usrRepo.GetUser(context.Background(), user.GetFilter{Username: "ana"})
	require.NoError(t, err)
	prof, err := app.usrRepo.GetProfile(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, prof.Role)
}

func Test_authApi_login(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "profe", user.RoleTeacher)
	testutil.CreateUser(t, app.usrRepo, "dormido", "", user.RoleStudent, false)

	tests := []struct {
		name         string
		form         url.Values
		wantCode     int
		wantLocation string
		wantInBody   string
	}{
		{
			name: "wrong password", form: url.Values{"username": {"profe"}, "password": {"nope"}},
			wantCode: http.StatusOK, wantInBody: "Usuario o contraseña incorrectos.",
		},
		{
			name: "unknown user", form: url.Values{"username": {"nadie"}, "password": {testutil.Password}},
			wantCode: http.StatusOK, wantInBody: "Usuario o contraseña incorrectos.",
		},
		{
			name: "inactive", form: url.Values{"username": {"dormido"}, "password": {testutil.Password}},
			wantCode: http.StatusOK, wantInBody: "Esta cuenta está inactiva.",
		},
		{
			name: "ok", form: url.Values{"username": {"profe"}, "password": {testutil.Password}},
			wantCode: http.StatusFound, wantLocation: "/",
		},
		{
			name: "ok with next", form: url.Values{"username": {"PROFE"}, "password": {testutil.Password}, "next": {"/cursos/"}},
			wantCode: http.StatusFound, wantLocation: "/cursos/",
		},
		{
			name: "external next is ignored", form: url.Values{"username": {"profe"}, "password": {testutil.Password}, "next": {"//evil.test/"}},
			wantCode: http.StatusFound, wantLocation: "/",
		},
		{
			name: "next with tab is ignored", form: url.Values{"username": {"profe"}, "password": {testutil.Password}, "next": {"/\t/evil.test"}},
			wantCode: http.StatusFound, wantLocation: "/",
		},
		{
			name: "next with newline is ignored", form: url.Values{"username": {"profe"}, "password": {testutil.Password}, "next": {"/\n/evil.test"}},
			wantCode: http.StatusFound, wantLocation: "/",
		},
		{
			name: "next with backslash is ignored", form: url.Values{"username": {"profe"}, "password": {testutil.Password}, "next": {"/\\evil.test"}},
			wantCode: http.StatusFound, wantLocation: "/",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := app.newClient(t).post("/login/", tt.form)
			assert.Equal(t, tt.wantCode, res.code)
			assert.Equal(t, tt.wantLocation, res.location)
			if tt.wantInBody != "" {
				assert.Contains(t, res.body, tt.wantInBody)
			}
		})
	}
}

func Test_authApi_loginUpdatesLastLogin(t *testing.T) {
	app := newTestApp(t)
	usr := app.createUser(t, "profe", user.RoleTeacher)
	require.False(t, usr.LastLogin.Valid)

	app.login(t, "profe")

	usr, err := app.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.True(t, usr.LastLogin.Valid)
}

func Test_authApi_logout(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "profe", user.RoleTeacher)
	c := app.login(t, "profe")

	assert.Equal(t, http.StatusOK, c.get("/").code)
	assert.Equal(t, http.StatusFound, c.get("/login/").code, "authenticated users skip the login page")

	res := c.post("/logout/", nil)
	assert.Equal(t, http.StatusFound, res.code)
	assert.Equal(t, "/login/", res.location)

	res = c.get("/cursos/")
	assert.Equal(t, http.StatusFound, res.code)
	assert.Equal(t, "/login/?next=%2Fcursos", res.location)
}

func Test_authApi_noProfile(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "sinrol", user.RoleNone)
	c := app.login(t, "sinrol")

	res := c.get("/")
	assert.Equal(t, http.StatusFound, res.code)
	assert.Equal(t, "/login/", res.location)
	assert.Contains(t, c.follow(res).body, "Asigna un rol para continuar.")

	// logged out
	assert.Equal(t, http.StatusFound, c.get("/cursos/").code)
}

func Test_authApi_requireRole(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "profe", user.RoleTeacher)
	app.createUser(t, "alumno", user.RoleStudent)
	app.createUser(t, "sinrol", user.RoleNone)
	teacher, student, norole := app.login(t, "profe"), app.login(t, "alumno"), app.login(t, "sinrol")

	tests := []struct {
		name     string
		client   *client
		path     string
		wantBody string
	}{
		{name: "student creates course", client: student, path: "/cursos/crear/", wantBody: "Solo docentes pueden crear cursos"},
		{name: "no role creates course", client: norole, path: "/cursos/crear/", wantBody: "Solo docentes pueden crear cursos"},
		{name: "teacher enrolls", client: teacher, path: "/cursos/1/matricular/", wantBody: "Solo estudiantes pueden matricularse"},
		{name: "student adds material", client: student, path: "/cursos/1/material/", wantBody: "Solo docentes pueden publicar material"},
		{name: "student creates activity", client: student, path: "/cursos/1/actividades/crear/", wantBody: "Solo docentes pueden crear actividades"},
		{name: "student marks attendance", client: student, path: "/cursos/1/asistencia/", wantBody: "Solo docentes pueden registrar asistencia"},
		{name: "teacher submits", client: teacher, path: "/actividades/1/entregar/", wantBody: "Solo estudiantes pueden entregar actividades"},
		{name: "student grades", client: student, path: "/entregas/1/calificar/", wantBody: "Solo docentes pueden calificar entregas"},
		{name: "student notifies", client: student, path: "/notificaciones/nueva/", wantBody: "Solo docentes pueden enviar avisos"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// the role gate runs before any lookup: course 1 does not even exist
			res := tt.client.get(tt.path)
			assert.Equal(t, http.StatusForbidden, res.code)
			assert.Equal(t, tt.wantBody, res.body)

			res = tt.client.post(tt.path, url.Values{"name": {"x"}})
			assert.Equal(t, http.StatusForbidden, res.code)
		})
	}
}
