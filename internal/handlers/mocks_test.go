package handlers

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/nimasrn/inquiry-desk/internal/services"
	"github.com/nimasrn/inquiry-desk/internal/validation"
	xhttp "github.com/nimasrn/inquiry-desk/pkg/http"
	"github.com/stretchr/testify/mock"
	"github.com/valyala/fasthttp"
)

type MockContactService struct {
	mock.Mock
}

func (m *MockContactService) Submit(ctx context.Context, p validation.Payload, meta model.ClientMeta, channel string) (*services.SubmitResult, error) {
	args := m.Called(ctx, p, meta, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SubmitResult), args.Error(1)
}

func (m *MockContactService) ValidateField(name, value string) validation.FieldResult {
	return m.Called(name, value).Get(0).(validation.FieldResult)
}

type MockTriageService struct {
	mock.Mock
}

func (m *MockTriageService) Dashboard(ctx context.Context, actor *model.Staff, r model.DateRange) (*model.DashboardStats, error) {
	args := m.Called(ctx, actor, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DashboardStats), args.Error(1)
}

func (m *MockTriageService) BulkUpdate(ctx context.Context, actor *model.Staff, ids []uuid.UUID, action model.BulkAction) (int64, error) {
	args := m.Called(ctx, actor, ids, action)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTriageService) Get(ctx context.Context, actor *model.Staff, id uuid.UUID) (*model.Submission, error) {
	return m.submission(m.Called(ctx, actor, id))
}

func (m *MockTriageService) List(ctx context.Context, actor *model.Staff, f model.SubmissionFilter) ([]*model.Submission, int64, error) {
	args := m.Called(ctx, actor, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Submission), args.Get(1).(int64), args.Error(2)
}

func (m *MockTriageService) Assign(ctx context.Context, actor *model.Staff, id uuid.UUID) (*model.Submission, error) {
	return m.submission(m.Called(ctx, actor, id))
}

func (m *MockTriageService) SetStatus(ctx context.Context, actor *model.Staff, id uuid.UUID, status model.Status) (*model.Submission, error) {
	return m.submission(m.Called(ctx, actor, id, status))
}

func (m *MockTriageService) UpdateNotes(ctx context.Context, actor *model.Staff, id uuid.UUID, notes string) (*model.Submission, error) {
	return m.submission(m.Called(ctx, actor, id, notes))
}

func (m *MockTriageService) submission(args mock.Arguments) (*model.Submission, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Submission), args.Error(1)
}

type MockRedispatcher struct {
	mock.Mock
}

func (m *MockRedispatcher) Redispatch(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Submission), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (*services.Session, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Session), args.Error(1)
}

func (m *MockAuthService) Authenticate(ctx context.Context, token string) (*model.Staff, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Staff), args.Error(1)
}

// recordingRenderer keeps the last page it was asked to render.
type recordingRenderer struct {
	page string
	data any
	err  error
}

func (r *recordingRenderer) Render(w io.Writer, page string, data any) error {
	r.page, r.data = page, data
	if r.err != nil {
		return r.err
	}
	_, err := io.WriteString(w, "<html>"+page+"</html>")
	return err
}

var testSite = model.SiteInfo{Name: "DriveRP", Phone: "+91 98765 43210", Email: "hello@driverp.in"}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func jsonContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := setupTestContext(method, path, body)
	ctx.Request.Header.SetContentType("application/json")
	return ctx
}

func formContext(method, path, body string) *xhttp.RequestCtx {
	ctx := setupTestContext(method, path, []byte(body))
	ctx.Request.Header.SetContentType("application/x-www-form-urlencoded")
	return ctx
}

func activeStaff() *model.Staff {
	return &model.Staff{ID: 7, Username: "asha", IsActive: true, IsStaff: true}
}
