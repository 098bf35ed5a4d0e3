package handlers

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/nimasrn/inquiry-desk/internal/repository"
	"github.com/nimasrn/inquiry-desk/internal/services"
	"github.com/nimasrn/inquiry-desk/internal/views"
	xhttp "github.com/nimasrn/inquiry-desk/pkg/http"
	"github.com/nimasrn/inquiry-desk/pkg/logger"
)

type TriageService interface {
	Dashboard(ctx context.Context, actor *model.Staff, r model.DateRange) (*model.DashboardStats, error)
	BulkUpdate(ctx context.Context, actor *model.Staff, ids []uuid.UUID, action model.BulkAction) (int64, error)
	Get(ctx context.Context, actor *model.Staff, id uuid.UUID) (*model.Submission, error)
	List(ctx context.Context, actor *model.Staff, f model.SubmissionFilter) ([]*model.Submission, int64, error)
	Assign(ctx context.Context, actor *model.Staff, id uuid.UUID) (*model.Submission, error)
	SetStatus(ctx context.Context, actor *model.Staff, id uuid.UUID, status model.Status) (*model.Submission, error)
	UpdateNotes(ctx context.Context, actor *model.Staff, id uuid.UUID, notes string) (*model.Submission, error)
}

// Redispatcher re-sends the notifications of one submission.
type Redispatcher interface {
	Redispatch(ctx context.Context, id uuid.UUID) (*model.Submission, error)
}

type TriageHandler struct {
	svc    TriageService
	resend Redispatcher
	views  Renderer
	site   model.SiteInfo
	loc    *time.Location
}

func NewTriageHandler(svc TriageService, resend Redispatcher, views Renderer, site model.SiteInfo, loc *time.Location) *TriageHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TriageHandler{svc: svc, resend: resend, views: views, site: site, loc: loc}
}

// RegisterTriageRoutes mounts every staff route behind guard.
func RegisterTriageRoutes(r *xhttp.Router, h *TriageHandler, guard xhttp.MiddlewareFunc) {
	r.GET("/dashboard/", guard(h.Dashboard))
	r.POST("/bulk-update/", guard(h.BulkUpdate))
	r.GET("/dashboard/submissions/", guard(h.ListSubmissions))
	r.GET("/dashboard/submissions/{id}", guard(h.GetSubmission))
	r.POST("/dashboard/submissions/{id}/assign", guard(h.AssignSubmission))
	r.POST("/dashboard/submissions/{id}/status", guard(h.SetStatus))
	r.POST("/dashboard/submissions/{id}/notes", guard(h.UpdateNotes))
	r.POST("/dashboard/submissions/{id}/resend", guard(h.Resend))
}

type bulkRequest struct {
	SubmissionIDs []string `json:"submission_ids"`
	Action        string   `json:"action"`
}

type bulkResponse struct {
	Success  bool   `json:"success"`
	Affected int64  `json:"affected"`
	Message  string `json:"message"`
}

type listResponse struct {
	Items []*model.Submission `json:"items"`
	Total int64               `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *TriageHandler) Dashboard(ctx *xhttp.RequestCtx) {
	staff := currentStaff(ctx)
	r := model.DateRange{
		Start: optionalDate(query(ctx, "start_date")),
		End:   optionalDate(query(ctx, "end_date")),
	}

	stats, err := h.svc.Dashboard(ctx, staff, r)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	if wantsJSON(ctx) {
		writeJSON(ctx, xhttp.StatusOK, stats)
		return
	}

	page := views.DashboardPage{
		Site:   h.site,
		Staff:  staff,
		Stats:  stats,
		Notice: query(ctx, "notice"),
		Error:  query(ctx, "error"),
		Now:    time.Now().In(h.loc),
	}
	if r.Start != nil {
		page.StartDate = r.Start.Format("2006-01-02")
	}
	if r.End != nil {
		page.EndDate = r.End.Format("2006-01-02")
	}
	var buf bytes.Buffer
	if err := h.views.Render(&buf, views.PageDashboard, page); err != nil {
		logger.Error("failed to render dashboard", "error", err)
		ctx.Error(xhttp.StatusText(xhttp.StatusInternalServerError), xhttp.StatusInternalServerError)
		return
	}
	ctx.Response.Header.Set("Cache-Control", "no-store")
	writeHTML(ctx, xhttp.StatusOK, buf.Bytes())
}

func (h *TriageHandler) BulkUpdate(ctx *xhttp.RequestCtx) {
	var req bulkRequest
	if isJSONBody(ctx) {
		if err := readJSON(ctx, &req); err != nil {
			writeJSON(ctx, xhttp.StatusBadRequest, bulkResponse{Message: "Invalid JSON data"})
			return
		}
	} else {
		req.SubmissionIDs = formMulti(ctx, "submission_ids")
		req.Action = string(ctx.PostArgs().Peek("action"))
		if req.Action == "" {
			req.Action = formValues(ctx)["action"]
		}
	}

	ids := parseIDs(req.SubmissionIDs)
	action := model.BulkAction(req.Action)
	affected, err := h.svc.BulkUpdate(ctx, currentStaff(ctx), ids, action)

	var msg string
	switch {
	case err == nil:
		msg = services.BulkNotice(action, affected)
	case errors.Is(err, services.ErrNoSelection):
		msg = "No submissions selected."
	case errors.Is(err, services.ErrUnknownAction):
		msg = "Unknown action."
	default:
		h.fail(ctx, err)
		return
	}

	if wantsJSON(ctx) {
		status := xhttp.StatusOK
		if err != nil {
			status = xhttp.StatusBadRequest
		}
		writeJSON(ctx, status, bulkResponse{Success: err == nil, Affected: affected, Message: msg})
		return
	}
	if err != nil {
		redirect(ctx, withQuery("/dashboard/", "error", msg))
		return
	}
	redirect(ctx, withQuery("/dashboard/", "notice", msg))
}

func (h *TriageHandler) ListSubmissions(ctx *xhttp.RequestCtx) {
	var f model.SubmissionFilter

	if v := query(ctx, "status"); v != "" {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				f.Statuses = append(f.Statuses, model.Status(part))
			}
		}
	}
	if v := query(ctx, "reason"); v != "" {
		r := model.Reason(v)
		f.Reason = &r
	}
	if v := query(ctx, "source"); v != "" {
		s := model.Source(v)
		f.Source = &s
	}
	if v := query(ctx, "email"); v != "" {
		f.Email = &v
	}
	f.From, f.To = model.DateRange{
		Start: optionalDate(query(ctx, "start_date")),
		End:   optionalDate(query(ctx, "end_date")),
	}.Bounds(h.loc)
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil && n > 0 {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil && n > 0 {
			f.Offset = n
		}
	}
	f.Desc = !strings.EqualFold(query(ctx, "order"), "asc")

	items, total, err := h.svc.List(ctx, currentStaff(ctx), f)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse{Items: items, Total: total})
}

func (h *TriageHandler) GetSubmission(ctx *xhttp.RequestCtx) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	s, err := h.svc.Get(ctx, currentStaff(ctx), id)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, s)
}

func (h *TriageHandler) AssignSubmission(ctx *xhttp.RequestCtx) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	s, err := h.svc.Assign(ctx, currentStaff(ctx), id)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, s)
}

func (h *TriageHandler) SetStatus(ctx *xhttp.RequestCtx) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var status string
	if isJSONBody(ctx) {
		var req struct {
			Status string `json:"status"`
		}
		if err := readJSON(ctx, &req); err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "Invalid JSON data")
			return
		}
		status = req.Status
	} else {
		status = formValues(ctx)["status"]
	}

	s, err := h.svc.SetStatus(ctx, currentStaff(ctx), id, model.Status(status))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, s)
}

func (h *TriageHandler) UpdateNotes(ctx *xhttp.RequestCtx) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var notes string
	if isJSONBody(ctx) {
		var req struct {
			Notes string `json:"admin_notes"`
		}
		if err := readJSON(ctx, &req); err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "Invalid JSON data")
			return
		}
		notes = req.Notes
	} else {
		notes = formValues(ctx)["admin_notes"]
	}

	s, err := h.svc.UpdateNotes(ctx, currentStaff(ctx), id, notes)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, s)
}

func (h *TriageHandler) Resend(ctx *xhttp.RequestCtx) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	if !currentStaff(ctx).CanTriage() {
		writeError(ctx, xhttp.StatusForbidden, "Staff access required")
		return
	}
	s, err := h.resend.Redispatch(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(ctx, xhttp.StatusNotFound, "Submission not found")
			return
		}
		logger.Error("manual resend failed", "submission_id", id, "error", err)
		writeError(ctx, xhttp.StatusBadGateway, "Notification could not be sent")
		return
	}
	writeJSON(ctx, xhttp.StatusOK, s)
}

func (h *TriageHandler) fail(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		writeError(ctx, xhttp.StatusForbidden, "Staff access required")
	case errors.Is(err, repository.ErrNotFound):
		writeError(ctx, xhttp.StatusNotFound, "Submission not found")
	case errors.Is(err, services.ErrInvalidStatus):
		writeError(ctx, xhttp.StatusBadRequest, "Invalid status")
	default:
		logger.Error("triage request failed", "path", string(ctx.Path()), "error", err, "request_id", xhttp.RequestID(ctx))
		writeError(ctx, xhttp.StatusInternalServerError, "An error occurred. Please try again.")
	}
}

func pathID(ctx *xhttp.RequestCtx) (uuid.UUID, bool) {
	raw, _ := ctx.UserValue("id").(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(ctx, xhttp.StatusNotFound, "Submission not found")
		return uuid.Nil, false
	}
	return id, true
}

// parseIDs keeps the well-formed identifiers; anything else cannot match a row.
func parseIDs(raw []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]struct{}, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(strings.TrimSpace(r))
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
