package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/nimasrn/inquiry-desk/internal/services"
	"github.com/nimasrn/inquiry-desk/internal/validation"
	"github.com/nimasrn/inquiry-desk/internal/views"
	xhttp "github.com/nimasrn/inquiry-desk/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

const validForm = "name=Ravi+Kumar&email=ravi%40example.com&phone=9876543210&reason=buy_bike&message=Looking+for+a+used+commuter+bike"

func storedSubmission() *model.Submission {
	return &model.Submission{
		ID:     uuid.MustParse("5b7c1f7e-8a52-4f7e-9d1a-0c5f0f8e2a11"),
		Name:   "Ravi Kumar",
		Email:  "ravi@example.com",
		Reason: model.ReasonBuyBike,
		Status: model.StatusNew,
	}
}

func TestContactHandler_ContactForm(t *testing.T) {
	t.Run("blank form", func(t *testing.T) {
		rr := &recordingRenderer{}
		h := NewContactHandler(new(MockContactService), rr, testSite)

		ctx := setupTestContext("GET", "/contact/", nil)
		h.ContactForm(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		assert.Equal(t, "no-store", string(ctx.Response.Header.Peek("Cache-Control")))
		page := rr.data.(views.ContactPage)
		assert.False(t, page.Success)
		assert.Len(t, page.Reasons, len(model.Reasons))
		assert.Equal(t, testSite, page.Site)
	})

	t.Run("success banner uses reason wording", func(t *testing.T) {
		rr := &recordingRenderer{}
		h := NewContactHandler(new(MockContactService), rr, testSite)

		ctx := setupTestContext("GET", "/contact/?success=1&reason=buy_bike", nil)
		h.ContactForm(ctx)

		page := rr.data.(views.ContactPage)
		assert.True(t, page.Success)
		assert.Equal(t, services.SuccessMessage(model.ReasonBuyBike), page.SuccessMessage)
	})

	t.Run("success banner falls back for unknown reason", func(t *testing.T) {
		rr := &recordingRenderer{}
		h := NewContactHandler(new(MockContactService), rr, testSite)

		ctx := setupTestContext("GET", "/contact/?success=1&reason=bogus", nil)
		h.ContactForm(ctx)

		page := rr.data.(views.ContactPage)
		assert.Equal(t, defaultSuccessMessage, page.SuccessMessage)
	})

	t.Run("render failure", func(t *testing.T) {
		h := NewContactHandler(new(MockContactService), &recordingRenderer{err: errors.New("boom")}, testSite)

		ctx := setupTestContext("GET", "/contact/", nil)
		h.ContactForm(ctx)

		assert.Equal(t, xhttp.StatusInternalServerError, ctx.Response.StatusCode())
	})
}

func TestContactHandler_SubmitForm(t *testing.T) {
	t.Run("success redirects with reason", func(t *testing.T) {
		svc := new(MockContactService)
		h := NewContactHandler(svc, &recordingRenderer{}, testSite)

		svc.On("Submit", mock.Anything, mock.MatchedBy(func(p validation.Payload) bool {
			return p["name"] == "Ravi Kumar" && p["email"] == "ravi@example.com" && p["reason"] == "buy_bike"
		}), model.ClientMeta{IPAddress: "203.0.113.9", UserAgent: "test-agent"}, services.ChannelWeb).
			Return(&services.SubmitResult{Submission: storedSubmission(), EmailSent: true}, nil)

		ctx := formContext("POST", "/contact/", validForm)
		ctx.Request.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		ctx.Request.Header.SetUserAgent("test-agent")
		h.SubmitForm(ctx)

		assert.Equal(t, xhttp.StatusFound, ctx.Response.StatusCode())
		assert.Equal(t, "/contact/?reason=buy_bike&success=1", string(ctx.Response.Header.Peek("Location")))
		svc.AssertExpectations(t)
	})

	t.Run("field errors re-render with input", func(t *testing.T) {
		svc := new(MockContactService)
		rr := &recordingRenderer{}
		h := NewContactHandler(svc, rr, testSite)

		ferrs := validation.FieldErrors{"phone": "Please enter a valid 10-digit phone number."}
		svc.On("Submit", mock.Anything, mock.Anything, mock.Anything, services.ChannelWeb).Return(nil, ferrs)

		ctx := formContext("POST", "/contact/", validForm)
		h.SubmitForm(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		page := rr.data.(views.ContactPage)
		assert.Equal(t, "Ravi Kumar", page.Values["name"])
		assert.Equal(t, ferrs["phone"], page.Errors["phone"])
		assert.Empty(t, page.ErrorMessage)
	})

	t.Run("throttled", func(t *testing.T) {
		svc := new(MockContactService)
		rr := &recordingRenderer{}
		h := NewContactHandler(svc, rr, testSite)

		svc.On("Submit", mock.Anything, mock.Anything, mock.Anything, services.ChannelWeb).Return(nil, services.ErrThrottled)

		ctx := formContext("POST", "/contact/", validForm)
		h.SubmitForm(ctx)

		assert.Equal(t, xhttp.StatusTooManyRequests, ctx.Response.StatusCode())
		assert.Equal(t, throttledMessage, rr.data.(views.ContactPage).ErrorMessage)
	})

	t.Run("storage failure shows generic error", func(t *testing.T) {
		svc := new(MockContactService)
		rr := &recordingRenderer{}
		h := NewContactHandler(svc, rr, testSite)

		svc.On("Submit", mock.Anything, mock.Anything, mock.Anything, services.ChannelWeb).Return(nil, services.ErrSubmissionFailed)

		ctx := formContext("POST", "/contact/", validForm)
		h.SubmitForm(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		page := rr.data.(views.ContactPage)
		assert.Contains(t, page.ErrorMessage, testSite.Phone)
		assert.Equal(t, "Ravi Kumar", page.Values["name"])
	})
}

func TestContactHandler_ValidateField(t *testing.T) {
	t.Run("json field", func(t *testing.T) {
		svc := new(MockContactService)
		h := NewContactHandler(svc, &recordingRenderer{}, testSite)

		svc.On("ValidateField", "phone", "12345").Return(validation.FieldResult{Valid: false, Error: "Please enter a valid 10-digit phone number."})

		ctx := jsonContext("POST", "/validate/", []byte(`{"field_name":"phone","field_value":"12345"}`))
		h.ValidateField(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		var res validation.FieldResult
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
		assert.False(t, res.Valid)
		assert.NotEmpty(t, res.Error)
	})

	t.Run("form field with empty value", func(t *testing.T) {
		svc := new(MockContactService)
		h := NewContactHandler(svc, &recordingRenderer{}, testSite)

		svc.On("ValidateField", "email", "").Return(validation.FieldResult{Valid: false, Error: "This field is required."})

		ctx := formContext("POST", "/validate/", "field_name=email&field_value=")
		h.ValidateField(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("missing value", func(t *testing.T) {
		svc := new(MockContactService)
		h := NewContactHandler(svc, &recordingRenderer{}, testSite)

		ctx := jsonContext("POST", "/validate/", []byte(`{"field_name":"phone"}`))
		h.ValidateField(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Body()), "Missing field data")
		svc.AssertNotCalled(t, "ValidateField", mock.Anything, mock.Anything)
	})

	t.Run("invalid json", func(t *testing.T) {
		h := NewContactHandler(new(MockContactService), &recordingRenderer{}, testSite)

		ctx := jsonContext("POST", "/validate/", []byte(`{"field_name":`))
		h.ValidateField(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Body()), "Invalid JSON data")
	})
}

func TestContactHandler_APISubmit(t *testing.T) {
	t.Run("json success", func(t *testing.T) {
		svc := new(MockContactService)
		h := NewContactHandler(svc, &recordingRenderer{}, testSite)

		stored := storedSubmission()
		svc.On("Submit", mock.Anything, mock.MatchedBy(func(p validation.Payload) bool {
			return p["phone"] == "9876543210" && p["reason"] == "buy_bike"
		}), mock.Anything, services.ChannelAPI).
			Return(&services.SubmitResult{Submission: stored, EmailSent: true, Message: "Thanks"}, nil)

		body := []byte(`{"name":"Ravi Kumar","email":"ravi@example.com","phone":9876543210,"reason":"buy_bike","message":"Looking for a used commuter bike"}`)
		ctx := jsonContext("POST", "/api/", body)
		h.APISubmit(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		var res submitResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
		assert.True(t, res.Success)
		assert.Equal(t, "Thanks", res.Message)
		assert.Equal(t, stored.ID.String(), res.SubmissionID)
	})

	t.Run("validation errors", func(t *testing.T) {
		svc := new(MockContactService)
		h := NewContactHandler(svc, &recordingRenderer{}, testSite)

		svc.On("Submit", mock.Anything, mock.Anything, mock.Anything, services.ChannelAPI).
			Return(nil, validation.FieldErrors{"email": "Enter a valid email address."})

		ctx := jsonContext("POST", "/api/", []byte(`{"name":"R"}`))
		h.APISubmit(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		var res submitResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
		assert.False(t, res.Success)
		assert.Contains(t, res.Errors, "email")
	})

	t.Run("form body", func(t *testing.T) {
		svc := new(MockContactService)
		h := NewContactHandler(svc, &recordingRenderer{}, testSite)

		svc.On("Submit", mock.Anything, mock.MatchedBy(func(p validation.Payload) bool {
			return p["name"] == "Ravi Kumar"
		}), mock.Anything, services.ChannelAPI).
			Return(&services.SubmitResult{Submission: storedSubmission()}, nil)

		ctx := formContext("POST", "/api/", validForm)
		h.APISubmit(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	})

	t.Run("throttled", func(t *testing.T) {
		svc := new(MockContactService)
		h := NewContactHandler(svc, &recordingRenderer{}, testSite)

		svc.On("Submit", mock.Anything, mock.Anything, mock.Anything, services.ChannelAPI).Return(nil, services.ErrThrottled)

		ctx := jsonContext("POST", "/api/", []byte(`{}`))
		h.APISubmit(ctx)

		assert.Equal(t, xhttp.StatusTooManyRequests, ctx.Response.StatusCode())
	})

	t.Run("internal failure", func(t *testing.T) {
		svc := new(MockContactService)
		h := NewContactHandler(svc, &recordingRenderer{}, testSite)

		svc.On("Submit", mock.Anything, mock.Anything, mock.Anything, services.ChannelAPI).Return(nil, services.ErrSubmissionFailed)

		ctx := jsonContext("POST", "/api/", []byte(`{}`))
		h.APISubmit(ctx)

		assert.Equal(t, xhttp.StatusInternalServerError, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Body()), apiErrorMessage)
	})

	t.Run("invalid json", func(t *testing.T) {
		svc := new(MockContactService)
		h := NewContactHandler(svc, &recordingRenderer{}, testSite)

		ctx := jsonContext("POST", "/api/", []byte(`not json`))
		h.APISubmit(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Body()), "Invalid JSON data")
		svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestContactHandler_APIInfo(t *testing.T) {
	h := NewContactHandler(new(MockContactService), &recordingRenderer{}, testSite)

	ctx := setupTestContext("GET", "/api/", nil)
	h.APIInfo(ctx)

	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	var res map[string]any
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
	assert.Equal(t, "DriveRP Contact API", res["name"])
	assert.Contains(t, res["endpoints"], "POST /api/")
}

func peerContext(peer string) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&fasthttp.Request{}, &net.TCPAddr{IP: net.ParseIP(peer), Port: 40000}, nil)
	return ctx
}

func TestClientIP(t *testing.T) {
	ctx := setupTestContext("GET", "/", nil)
	assert.Equal(t, "0.0.0.0", clientIP(ctx, nil))

	ctx.Request.Header.Set("X-Forwarded-For", " 198.51.100.4 , 10.0.0.2")
	assert.Equal(t, "198.51.100.4", clientIP(ctx, nil))

	t.Run("garbage hop falls back to peer", func(t *testing.T) {
		ctx := peerContext("192.0.2.50")
		ctx.Request.Header.Set("X-Forwarded-For", "definitely-not-an-ip, 10.0.0.2")
		assert.Equal(t, "192.0.2.50", clientIP(ctx, nil))
	})

	t.Run("oversized hop falls back to peer", func(t *testing.T) {
		ctx := peerContext("192.0.2.50")
		ctx.Request.Header.Set("X-Forwarded-For", strings.Repeat("1", 200))
		got := clientIP(ctx, nil)
		assert.Equal(t, "192.0.2.50", got)
		assert.LessOrEqual(t, len(got), 45)
	})

	t.Run("hop is canonicalised", func(t *testing.T) {
		ctx := peerContext("192.0.2.50")
		ctx.Request.Header.Set("X-Forwarded-For", "2001:DB8:0:0:0:0:0:1")
		assert.Equal(t, "2001:db8::1", clientIP(ctx, nil))
	})

	_, proxyNet, err := net.ParseCIDR("10.0.0.0/8")
	require.NoError(t, err)
	trusted := []*net.IPNet{proxyNet}

	t.Run("untrusted peer cannot name the client", func(t *testing.T) {
		ctx := peerContext("192.0.2.50")
		ctx.Request.Header.Set("X-Forwarded-For", "198.51.100.4")
		assert.Equal(t, "192.0.2.50", clientIP(ctx, trusted))
	})

	t.Run("trusted proxy names the client", func(t *testing.T) {
		ctx := peerContext("10.1.2.3")
		ctx.Request.Header.Set("X-Forwarded-For", "198.51.100.4")
		assert.Equal(t, "198.51.100.4", clientIP(ctx, trusted))
	})
}

func TestContactHandler_APISubmit_ForgedForwardedFor(t *testing.T) {
	svc := new(MockContactService)
	_, proxyNet, err := net.ParseCIDR("10.0.0.0/8")
	require.NoError(t, err)
	h := NewContactHandler(svc, &recordingRenderer{}, testSite).WithTrustedProxies([]*net.IPNet{proxyNet})

	svc.On("Submit", mock.Anything, mock.Anything, model.ClientMeta{IPAddress: "192.0.2.50"}, services.ChannelAPI).
		Return(&services.SubmitResult{Submission: storedSubmission(), EmailSent: true}, nil)

	ctx := peerContext("192.0.2.50")
	ctx.Request.Header.SetMethod("POST")
	ctx.Request.SetRequestURI("/api/")
	ctx.Request.Header.SetContentType("application/json")
	ctx.Request.SetBody([]byte(`{"name":"Ravi Kumar","email":"ravi@example.com","reason":"buy_bike"}`))
	ctx.Request.Header.Set("X-Forwarded-For", "198.51.100.77")
	h.APISubmit(ctx)

	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	svc.AssertExpectations(t)
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/dashboard/", safeNext(""))
	assert.Equal(t, "/dashboard/", safeNext("https://evil.example"))
	assert.Equal(t, "/dashboard/", safeNext("//evil.example"))
	assert.Equal(t, "/dashboard/?start_date=2024-01-01", safeNext("/dashboard/?start_date=2024-01-01"))
}
