package handlers

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/nimasrn/inquiry-desk/internal/services"
	"github.com/nimasrn/inquiry-desk/internal/views"
	xhttp "github.com/nimasrn/inquiry-desk/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

const testCookie = "staff_session"

func newAuthHandler(svc *MockAuthService, rr *recordingRenderer) *AuthHandler {
	return NewAuthHandler(svc, rr, testSite, CookieConfig{Name: testCookie})
}

func responseCookie(ctx *xhttp.RequestCtx) *fasthttp.Cookie {
	c := &fasthttp.Cookie{}
	c.SetKey(testCookie)
	if !ctx.Response.Header.Cookie(c) {
		return nil
	}
	return c
}

func TestAuthHandler_Login(t *testing.T) {
	session := &services.Session{Staff: activeStaff(), Token: "signed.jwt.token", ExpiresAt: time.Now().Add(time.Hour)}

	t.Run("form login redirects to next", func(t *testing.T) {
		svc := new(MockAuthService)
		h := newAuthHandler(svc, &recordingRenderer{})
		svc.On("Login", mock.Anything, "asha", "s3cret-pass").Return(session, nil)

		ctx := formContext("POST", "/auth/login/", "username=asha&password=s3cret-pass&next=%2Fdashboard%2F%3Fstart_date%3D2024-01-01")
		h.Login(ctx)

		assert.Equal(t, xhttp.StatusFound, ctx.Response.StatusCode())
		assert.Equal(t, "/dashboard/?start_date=2024-01-01", string(ctx.Response.Header.Peek("Location")))
		c := responseCookie(ctx)
		require.NotNil(t, c)
		assert.Equal(t, "signed.jwt.token", string(c.Value()))
		assert.True(t, c.HTTPOnly())
	})

	t.Run("form login ignores offsite next", func(t *testing.T) {
		svc := new(MockAuthService)
		h := newAuthHandler(svc, &recordingRenderer{})
		svc.On("Login", mock.Anything, "asha", "s3cret-pass").Return(session, nil)

		ctx := formContext("POST", "/auth/login/", "username=asha&password=s3cret-pass&next=https%3A%2F%2Fevil.example")
		h.Login(ctx)

		assert.Equal(t, "/dashboard/", string(ctx.Response.Header.Peek("Location")))
	})

	t.Run("json login returns token", func(t *testing.T) {
		svc := new(MockAuthService)
		h := newAuthHandler(svc, &recordingRenderer{})
		svc.On("Login", mock.Anything, "asha", "s3cret-pass").Return(session, nil)

		ctx := jsonContext("POST", "/auth/login/", []byte(`{"username":"asha","password":"s3cret-pass"}`))
		h.Login(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		var res loginResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
		assert.Equal(t, "signed.jwt.token", res.Token)
		assert.Equal(t, "asha", res.Staff.Username)
		assert.NotNil(t, responseCookie(ctx))
	})

	t.Run("bad credentials re-render", func(t *testing.T) {
		svc := new(MockAuthService)
		rr := &recordingRenderer{}
		h := newAuthHandler(svc, rr)
		svc.On("Login", mock.Anything, "asha", "wrong").Return(nil, services.ErrInvalidCredentials)

		ctx := formContext("POST", "/auth/login/", "username=asha&password=wrong&next=%2Fdashboard%2F")
		h.Login(ctx)

		assert.Equal(t, xhttp.StatusUnauthorized, ctx.Response.StatusCode())
		page := rr.data.(views.LoginPage)
		assert.Equal(t, "asha", page.Username)
		assert.Equal(t, "/dashboard/", page.Next)
		assert.NotEmpty(t, page.Error)
		assert.Nil(t, responseCookie(ctx))
	})

	t.Run("bad credentials json", func(t *testing.T) {
		svc := new(MockAuthService)
		h := newAuthHandler(svc, &recordingRenderer{})
		svc.On("Login", mock.Anything, "asha", "wrong").Return(nil, services.ErrInvalidCredentials)

		ctx := jsonContext("POST", "/auth/login/", []byte(`{"username":"asha","password":"wrong"}`))
		h.Login(ctx)

		assert.Equal(t, xhttp.StatusUnauthorized, ctx.Response.StatusCode())
	})

	t.Run("store failure", func(t *testing.T) {
		svc := new(MockAuthService)
		h := newAuthHandler(svc, &recordingRenderer{})
		svc.On("Login", mock.Anything, "asha", "pw").Return(nil, errors.New("db down"))

		ctx := jsonContext("POST", "/auth/login/", []byte(`{"username":"asha","password":"pw"}`))
		h.Login(ctx)

		assert.Equal(t, xhttp.StatusInternalServerError, ctx.Response.StatusCode())
	})
}

func TestAuthHandler_LoginForm(t *testing.T) {
	rr := &recordingRenderer{}
	h := newAuthHandler(new(MockAuthService), rr)

	ctx := setupTestContext("GET", "/auth/login/?next=%2Fdashboard%2F", nil)
	h.LoginForm(ctx)

	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, views.PageLogin, rr.page)
	assert.Equal(t, "/dashboard/", rr.data.(views.LoginPage).Next)
}

func TestAuthHandler_Logout(t *testing.T) {
	h := newAuthHandler(new(MockAuthService), &recordingRenderer{})

	ctx := setupTestContext("POST", "/auth/logout/", nil)
	h.Logout(ctx)

	assert.Equal(t, xhttp.StatusFound, ctx.Response.StatusCode())
	c := responseCookie(ctx)
	require.NotNil(t, c)
	assert.Empty(t, c.Value())
	assert.True(t, c.Expire().Before(time.Now()))
}

func TestAuthHandler_RequireStaff(t *testing.T) {
	reached := func(hit *bool) xhttp.RequestHandler {
		return func(ctx *xhttp.RequestCtx) {
			*hit = true
			assert.NotNil(t, currentStaff(ctx))
			ctx.SetStatusCode(xhttp.StatusOK)
		}
	}

	t.Run("bearer token", func(t *testing.T) {
		svc := new(MockAuthService)
		h := newAuthHandler(svc, &recordingRenderer{})
		svc.On("Authenticate", mock.Anything, "abc").Return(activeStaff(), nil)

		var hit bool
		ctx := setupTestContext("GET", "/dashboard/", nil)
		ctx.Request.Header.Set("Authorization", "Bearer abc")
		h.RequireStaff(reached(&hit))(ctx)

		assert.True(t, hit)
		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	})

	t.Run("session cookie", func(t *testing.T) {
		svc := new(MockAuthService)
		h := newAuthHandler(svc, &recordingRenderer{})
		svc.On("Authenticate", mock.Anything, "from-cookie").Return(activeStaff(), nil)

		var hit bool
		ctx := setupTestContext("POST", "/bulk-update/", nil)
		ctx.Request.Header.SetCookie(testCookie, "from-cookie")
		h.RequireStaff(reached(&hit))(ctx)

		assert.True(t, hit)
	})

	t.Run("browser redirected to login", func(t *testing.T) {
		svc := new(MockAuthService)
		h := newAuthHandler(svc, &recordingRenderer{})
		svc.On("Authenticate", mock.Anything, "").Return(nil, services.ErrUnauthenticated)

		var hit bool
		ctx := setupTestContext("GET", "/dashboard/?start_date=2024-01-01", nil)
		h.RequireStaff(reached(&hit))(ctx)

		assert.False(t, hit)
		assert.Equal(t, xhttp.StatusFound, ctx.Response.StatusCode())
		loc, err := url.Parse(string(ctx.Response.Header.Peek("Location")))
		require.NoError(t, err)
		assert.Equal(t, "/auth/login/", loc.Path)
		assert.Equal(t, "/dashboard/?start_date=2024-01-01", loc.Query().Get("next"))
	})

	t.Run("api caller gets 401", func(t *testing.T) {
		svc := new(MockAuthService)
		h := newAuthHandler(svc, &recordingRenderer{})
		svc.On("Authenticate", mock.Anything, "").Return(nil, services.ErrUnauthenticated)

		var hit bool
		ctx := setupTestContext("POST", "/bulk-update/", nil)
		h.RequireStaff(reached(&hit))(ctx)

		assert.False(t, hit)
		assert.Equal(t, xhttp.StatusUnauthorized, ctx.Response.StatusCode())
	})

	t.Run("non-staff forbidden", func(t *testing.T) {
		svc := new(MockAuthService)
		h := newAuthHandler(svc, &recordingRenderer{})
		svc.On("Authenticate", mock.Anything, "abc").Return(nil, services.ErrForbidden)

		var hit bool
		ctx := setupTestContext("GET", "/dashboard/", nil)
		ctx.Request.Header.Set("Authorization", "bearer abc")
		h.RequireStaff(reached(&hit))(ctx)

		assert.False(t, hit)
		assert.Equal(t, xhttp.StatusForbidden, ctx.Response.StatusCode())
	})

	t.Run("lookup failure", func(t *testing.T) {
		svc := new(MockAuthService)
		h := newAuthHandler(svc, &recordingRenderer{})
		svc.On("Authenticate", mock.Anything, "abc").Return(nil, errors.New("db down"))

		var hit bool
		ctx := setupTestContext("GET", "/dashboard/", nil)
		ctx.Request.Header.Set("Authorization", "Bearer abc")
		h.RequireStaff(reached(&hit))(ctx)

		assert.False(t, hit)
		assert.Equal(t, xhttp.StatusInternalServerError, ctx.Response.StatusCode())
	})
}

