package handlers

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/nimasrn/inquiry-desk/internal/services"
	"github.com/nimasrn/inquiry-desk/internal/views"
	xhttp "github.com/nimasrn/inquiry-desk/pkg/http"
	"github.com/nimasrn/inquiry-desk/pkg/logger"
	"github.com/valyala/fasthttp"
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (*services.Session, error)
	Authenticate(ctx context.Context, token string) (*model.Staff, error)
}

type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	svc    AuthService
	views  Renderer
	site   model.SiteInfo
	cookie CookieConfig
}

func NewAuthHandler(svc AuthService, views Renderer, site model.SiteInfo, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "staff_session"
	}
	return &AuthHandler{svc: svc, views: views, site: site, cookie: cookie}
}

func RegisterAuthRoutes(r *xhttp.Router, h *AuthHandler) {
	r.GET("/auth/login/", h.LoginForm)
	r.POST("/auth/login/", h.Login)
	r.POST("/auth/logout/", h.Logout)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Staff     *model.Staff `json:"staff"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *AuthHandler) LoginForm(ctx *xhttp.RequestCtx) {
	h.renderLogin(ctx, xhttp.StatusOK, views.LoginPage{Site: h.site, Next: query(ctx, "next")})
}

func (h *AuthHandler) Login(ctx *xhttp.RequestCtx) {
	var (
		req  loginRequest
		next string
	)
	if isJSONBody(ctx) {
		if err := readJSON(ctx, &req); err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "Invalid JSON data")
			return
		}
	} else {
		form := formValues(ctx)
		req.Username, req.Password, next = form["username"], form["password"], form["next"]
	}

	sess, err := h.svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		status := xhttp.StatusUnauthorized
		msg := "Invalid username or password."
		if !errors.Is(err, services.ErrInvalidCredentials) {
			logger.Error("staff login failed", "error", err)
			status, msg = xhttp.StatusInternalServerError, "An error occurred. Please try again."
		}
		if wantsJSON(ctx) {
			writeError(ctx, status, msg)
			return
		}
		h.renderLogin(ctx, status, views.LoginPage{Site: h.site, Username: req.Username, Next: next, Error: msg})
		return
	}

	h.setCookie(ctx, sess.Token, sess.ExpiresAt)
	if wantsJSON(ctx) {
		writeJSON(ctx, xhttp.StatusOK, loginResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, Staff: sess.Staff})
		return
	}
	redirect(ctx, safeNext(next))
}

func (h *AuthHandler) Logout(ctx *xhttp.RequestCtx) {
	h.setCookie(ctx, "", time.Unix(0, 0))
	if wantsJSON(ctx) {
		writeJSON(ctx, xhttp.StatusOK, map[string]bool{"success": true})
		return
	}
	redirect(ctx, "/auth/login/")
}

// RequireStaff admits only authenticated, active staff. The resolved account
// is stored on the request for the wrapped handler.
func (h *AuthHandler) RequireStaff(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		st, err := h.svc.Authenticate(ctx, h.token(ctx))
		switch {
		case err == nil:
			ctx.SetUserValue(staffKey, st)
			next(ctx)
		case errors.Is(err, services.ErrForbidden):
			writeError(ctx, xhttp.StatusForbidden, "Staff access required")
		case errors.Is(err, services.ErrUnauthenticated):
			if ctx.IsGet() && !wantsJSON(ctx) {
				redirect(ctx, withQuery("/auth/login/", "next", string(ctx.RequestURI())))
				return
			}
			writeError(ctx, xhttp.StatusUnauthorized, "Authentication required")
		default:
			logger.Error("staff authentication failed", "error", err)
			writeError(ctx, xhttp.StatusInternalServerError, "An error occurred. Please try again.")
		}
	}
}

func (h *AuthHandler) token(ctx *xhttp.RequestCtx) string {
	if authz := string(ctx.Request.Header.Peek("Authorization")); authz != "" {
		if scheme, tok, ok := strings.Cut(authz, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	return string(ctx.Request.Header.Cookie(h.cookie.Name))
}

func (h *AuthHandler) setCookie(ctx *xhttp.RequestCtx, value string, expires time.Time) {
	c := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(c)
	c.SetKey(h.cookie.Name)
	c.SetValue(value)
	c.SetPath("/")
	c.SetHTTPOnly(true)
	c.SetSecure(h.cookie.Secure)
	c.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	c.SetExpire(expires)
	ctx.Response.Header.SetCookie(c)
}

func (h *AuthHandler) renderLogin(ctx *xhttp.RequestCtx, status int, page views.LoginPage) {
	var buf bytes.Buffer
	if err := h.views.Render(&buf, views.PageLogin, page); err != nil {
		logger.Error("failed to render login page", "error", err)
		ctx.Error(xhttp.StatusText(xhttp.StatusInternalServerError), xhttp.StatusInternalServerError)
		return
	}
	ctx.Response.Header.Set("Cache-Control", "no-store")
	writeHTML(ctx, status, buf.Bytes())
}
