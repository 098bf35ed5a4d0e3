package handlers

import (
	"bytes"
	"encoding/json"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/nimasrn/inquiry-desk/internal/model"
	xhttp "github.com/nimasrn/inquiry-desk/pkg/http"
)

const staffKey = "staff"

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func writeHTML(ctx *xhttp.RequestCtx, status int, body []byte) {
	ctx.Response.Header.Set("Content-Type", "text/html; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(body)
}

func redirect(ctx *xhttp.RequestCtx, location string) {
	ctx.Response.Header.Set("Location", location)
	ctx.Response.SetStatusCode(xhttp.StatusFound)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// optionalDate parses s, treating empty and malformed values as omitted.
func optionalDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil
	}
	return &t
}

func isJSONBody(ctx *xhttp.RequestCtx) bool {
	return bytes.HasPrefix(bytes.ToLower(ctx.Request.Header.ContentType()), []byte("application/json"))
}

// wantsJSON reports whether the caller prefers a JSON response over a page.
func wantsJSON(ctx *xhttp.RequestCtx) bool {
	accept := strings.ToLower(string(ctx.Request.Header.Peek("Accept")))
	if strings.Contains(accept, "application/json") {
		return true
	}
	return isJSONBody(ctx)
}

// formValues collects url-encoded and multipart form fields. The first value
// of a repeated key wins.
func formValues(ctx *xhttp.RequestCtx) map[string]string {
	out := map[string]string{}
	if mf, err := ctx.MultipartForm(); err == nil && mf != nil {
		for k, vs := range mf.Value {
			if len(vs) > 0 {
				out[k] = vs[0]
			}
		}
		return out
	}
	ctx.PostArgs().VisitAll(func(k, v []byte) {
		if _, seen := out[string(k)]; !seen {
			out[string(k)] = string(v)
		}
	})
	return out
}

func formMulti(ctx *xhttp.RequestCtx, key string) []string {
	if mf, err := ctx.MultipartForm(); err == nil && mf != nil {
		return mf.Value[key]
	}
	var out []string
	for _, v := range ctx.PostArgs().PeekMulti(key) {
		out = append(out, string(v))
	}
	return out
}

// clientIP is the first hop of X-Forwarded-For when the peer is a trusted
// proxy and the hop parses as an address, otherwise the peer address. An empty
// trusted list trusts every peer.
func clientIP(ctx *xhttp.RequestCtx, trusted []*net.IPNet) string {
	peer := ctx.RemoteIP()
	if xff := ctx.Request.Header.Peek("X-Forwarded-For"); len(xff) > 0 && trustsPeer(peer, trusted) {
		first, _, _ := strings.Cut(string(xff), ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	return peer.String()
}

func trustsPeer(peer net.IP, trusted []*net.IPNet) bool {
	if len(trusted) == 0 {
		return true
	}
	for _, n := range trusted {
		if n.Contains(peer) {
			return true
		}
	}
	return false
}

func clientMeta(ctx *xhttp.RequestCtx, trusted []*net.IPNet) model.ClientMeta {
	return model.ClientMeta{
		IPAddress: clientIP(ctx, trusted),
		UserAgent: string(ctx.Request.Header.UserAgent()),
	}
}

func currentStaff(ctx *xhttp.RequestCtx) *model.Staff {
	st, _ := ctx.UserValue(staffKey).(*model.Staff)
	return st
}

func withQuery(path string, kv ...string) string {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return path + "?" + v.Encode()
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/dashboard/"
	}
	return next
}
