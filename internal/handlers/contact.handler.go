package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/nimasrn/inquiry-desk/internal/services"
	"github.com/nimasrn/inquiry-desk/internal/validation"
	"github.com/nimasrn/inquiry-desk/internal/views"
	xhttp "github.com/nimasrn/inquiry-desk/pkg/http"
	"github.com/nimasrn/inquiry-desk/pkg/logger"
)

const (
	defaultSuccessMessage = "Thank you! We have received your message and will contact you within 24 hours."
	throttledMessage      = "Too many submissions. Please try again later."
	apiErrorMessage       = "An error occurred. Please try again."
)

type ContactService interface {
	Submit(ctx context.Context, p validation.Payload, meta model.ClientMeta, channel string) (*services.SubmitResult, error)
	ValidateField(name, value string) validation.FieldResult
}

type Renderer interface {
	Render(w io.Writer, page string, data any) error
}

type ContactHandler struct {
	svc     ContactService
	views   Renderer
	site    model.SiteInfo
	proxies []*net.IPNet
}

func NewContactHandler(svc ContactService, views Renderer, site model.SiteInfo) *ContactHandler {
	return &ContactHandler{svc: svc, views: views, site: site}
}

// WithTrustedProxies limits which peers may name the client in
// X-Forwarded-For.
func (h *ContactHandler) WithTrustedProxies(nets []*net.IPNet) *ContactHandler {
	h.proxies = nets
	return h
}

func RegisterContactRoutes(r *xhttp.Router, h *ContactHandler) {
	r.GET("/contact/", h.ContactForm)
	r.POST("/contact/", h.SubmitForm)
	r.POST("/validate/", h.ValidateField)
	r.GET("/api/", h.APIInfo)
	r.POST("/api/", h.APISubmit)
}

type validateRequest struct {
	FieldName  *string `json:"field_name"`
	FieldValue *string `json:"field_value"`
}

type submitResponse struct {
	Success      bool              `json:"success"`
	Message      string            `json:"message,omitempty"`
	Errors       map[string]string `json:"errors,omitempty"`
	SubmissionID string            `json:"submission_id,omitempty"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *ContactHandler) ContactForm(ctx *xhttp.RequestCtx) {
	page := h.page(nil, nil)
	if query(ctx, "success") == "1" {
		page.Success = true
		page.SuccessMessage = defaultSuccessMessage
		if r := model.Reason(query(ctx, "reason")); r.Valid() {
			page.SuccessMessage = services.SuccessMessage(r)
		}
	}
	h.render(ctx, xhttp.StatusOK, page)
}

func (h *ContactHandler) SubmitForm(ctx *xhttp.RequestCtx) {
	values := formValues(ctx)
	res, err := h.svc.Submit(ctx, validation.Payload(values), clientMeta(ctx, h.proxies), services.ChannelWeb)
	if err == nil {
		redirect(ctx, withQuery("/contact/", "success", "1", "reason", string(res.Submission.Reason)))
		return
	}

	var ferrs validation.FieldErrors
	switch {
	case errors.As(err, &ferrs):
		h.render(ctx, xhttp.StatusOK, h.page(values, ferrs))
	case errors.Is(err, services.ErrThrottled):
		page := h.page(values, nil)
		page.ErrorMessage = throttledMessage
		h.render(ctx, xhttp.StatusTooManyRequests, page)
	default:
		logger.Error("contact form submission failed", "error", err, "request_id", xhttp.RequestID(ctx))
		page := h.page(values, nil)
		page.ErrorMessage = services.GenericErrorMessage(h.site.Phone)
		h.render(ctx, xhttp.StatusOK, page)
	}
}

func (h *ContactHandler) ValidateField(ctx *xhttp.RequestCtx) {
	var name, value string
	var hasName, hasValue bool
	if isJSONBody(ctx) {
		var req validateRequest
		if err := readJSON(ctx, &req); err != nil {
			writeJSON(ctx, xhttp.StatusBadRequest, validation.FieldResult{Valid: false, Error: "Invalid JSON data"})
			return
		}
		if req.FieldName != nil {
			name, hasName = *req.FieldName, *req.FieldName != ""
		}
		if req.FieldValue != nil {
			value, hasValue = *req.FieldValue, true
		}
	} else {
		args := ctx.PostArgs()
		name, hasName = string(args.Peek("field_name")), args.Has("field_name") && len(args.Peek("field_name")) > 0
		value, hasValue = string(args.Peek("field_value")), args.Has("field_value")
	}
	if !hasName || !hasValue {
		writeJSON(ctx, xhttp.StatusBadRequest, validation.FieldResult{Valid: false, Error: "Missing field data"})
		return
	}
	writeJSON(ctx, xhttp.StatusOK, h.svc.ValidateField(name, value))
}

func (h *ContactHandler) APIInfo(ctx *xhttp.RequestCtx) {
	writeJSON(ctx, xhttp.StatusOK, map[string]any{
		"name":    h.site.Name + " Contact API",
		"version": "1.0",
		"endpoints": map[string]string{
			"POST /api/":      "Submit contact form",
			"POST /validate/": "Validate individual fields",
		},
	})
}

func (h *ContactHandler) APISubmit(ctx *xhttp.RequestCtx) {
	var payload validation.Payload
	if isJSONBody(ctx) {
		var raw map[string]any
		dec := json.NewDecoder(bytes.NewReader(ctx.PostBody()))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			writeJSON(ctx, xhttp.StatusBadRequest, submitResponse{Success: false, Message: "Invalid JSON data"})
			return
		}
		payload = make(validation.Payload, len(raw))
		for k, v := range raw {
			switch tv := v.(type) {
			case nil:
			case string:
				payload[k] = tv
			default:
				payload[k] = fmt.Sprint(tv)
			}
		}
	} else {
		payload = validation.Payload(formValues(ctx))
	}

	res, err := h.svc.Submit(ctx, payload, clientMeta(ctx, h.proxies), services.ChannelAPI)
	if err == nil {
		writeJSON(ctx, xhttp.StatusOK, submitResponse{
			Success:      true,
			Message:      res.Message,
			SubmissionID: res.Submission.ID.String(),
		})
		return
	}

	var ferrs validation.FieldErrors
	switch {
	case errors.As(err, &ferrs):
		writeJSON(ctx, xhttp.StatusBadRequest, submitResponse{Success: false, Errors: ferrs})
	case errors.Is(err, services.ErrThrottled):
		writeJSON(ctx, xhttp.StatusTooManyRequests, submitResponse{Success: false, Message: throttledMessage})
	default:
		logger.Error("contact api submission failed", "error", err, "request_id", xhttp.RequestID(ctx))
		writeJSON(ctx, xhttp.StatusInternalServerError, submitResponse{Success: false, Message: apiErrorMessage})
	}
}

func (h *ContactHandler) page(values map[string]string, errs map[string]string) views.ContactPage {
	if values == nil {
		values = map[string]string{}
	}
	return views.ContactPage{
		Site:    h.site,
		Reasons: views.ReasonOptions(),
		Sources: views.SourceOptions(),
		Values:  values,
		Errors:  errs,
	}
}

func (h *ContactHandler) render(ctx *xhttp.RequestCtx, status int, page views.ContactPage) {
	var buf bytes.Buffer
	if err := h.views.Render(&buf, views.PageContact, page); err != nil {
		logger.Error("failed to render contact page", "error", err)
		ctx.Error(xhttp.StatusText(xhttp.StatusInternalServerError), xhttp.StatusInternalServerError)
		return
	}
	ctx.Response.Header.Set("Cache-Control", "no-store")
	writeHTML(ctx, status, buf.Bytes())
}
