package installment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"lms-admin-service/internal/domain/installment"
	xerrors "lms-admin-service/internal/pkg/errors"
	"lms-admin-service/internal/pkg/validation"
	service "lms-admin-service/internal/service/installment"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type planAPI struct {
	mu      sync.Mutex
	failFor map[string]bool
	created []installment.CreatePlanPayload
}

func (a *planAPI) ListInstallments(ctx context.Context, courseID string) ([]installment.Plan, error) {
	return []installment.Plan{{ID: "p1", CourseID: courseID, PlanType: "6 Months", NumberOfInstallments: 3}}, nil
}

func (a *planAPI) CreateInstallment(ctx context.Context, p installment.CreatePlanPayload) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failFor[p.ValidityID] {
		return errors.New("lms rejected plan")
	}
	a.created = append(a.created, p)
	return nil
}

type drafts struct {
	mu       sync.Mutex
	sessions map[string]*installment.EditorSession
}

func (d *drafts) Save(ctx context.Context, s *installment.EditorSession) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[s.ID] = s
	return nil
}

func (d *drafts) Get(ctx context.Context, id string) (*installment.EditorSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return s, nil
}

func (d *drafts) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sessions, id)
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

const openBody = `{"subscription":{"id":"sub-1","gst_percent":"18","handling_percent":"2","validities":[
	{"id":"v1","duration_months":6,"base_price":"1000","discount_percent":"10"},
	{"id":"v2","duration_months":12,"base_price":"1800","discount_percent":"0"}]}}`

func newRouter(t *testing.T, api *planAPI) (*gin.Engine, *drafts) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, validation.Register())

	store := &drafts{sessions: map[string]*installment.EditorSession{}}
	synchronizer := service.NewSynchronizer(api, store, nil, nil, service.Options{}, zap.NewNop())
	h := NewInstallmentHandler(synchronizer)

	r := gin.New()
	r.POST("/courses/:course_id/installment-editor", h.OpenEditor)
	r.PUT("/installment-editor/:session_id/rows/:validity_id", h.UpdateRow)
	r.POST("/installment-editor/:session_id/submit", h.Submit)
	return r, store
}

func call(t *testing.T, r *gin.Engine, method, target, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func openEditor(t *testing.T, r *gin.Engine) installment.EditorSession {
	t.Helper()
	code, env := call(t, r, http.MethodPost, "/courses/course-1/installment-editor", openBody)
	require.Equal(t, http.StatusCreated, code, env.Error)

	var session installment.EditorSession
	require.NoError(t, json.Unmarshal(env.Data, &session))
	return session
}

func TestOpenEditor(t *testing.T) {
	r, store := newRouter(t, &planAPI{})

	session := openEditor(t, r)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "course-1", session.CourseID)
	require.Len(t, session.Rows, 2)
	assert.Equal(t, 3, session.Rows[0].NumberOfInstallments)
	assert.Equal(t, 1, session.Rows[1].NumberOfInstallments)
	assert.Contains(t, store.sessions, session.ID)
}

func TestOpenEditorRejectsInvalidSubscription(t *testing.T) {
	r, _ := newRouter(t, &planAPI{})

	code, _ := call(t, r, http.MethodPost, "/courses/course-1/installment-editor",
		`{"subscription":{"validities":[{"id":"v1","duration_months":6,"base_price":"1000","discount_percent":"150"}]}}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, r, http.MethodPost, "/courses/course-1/installment-editor",
		`{"subscription":{"gst_percent":"7","validities":[{"id":"v1","duration_months":6,"base_price":"1000"}]}}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUpdateRowOutOfRange(t *testing.T) {
	r, _ := newRouter(t, &planAPI{})
	session := openEditor(t, r)

	for _, n := range []string{"0", "25"} {
		code, env := call(t, r, http.MethodPut, "/installment-editor/"+session.ID+"/rows/v1", `{"number_of_installments":`+n+`}`)
		assert.Equal(t, http.StatusBadRequest, code, n)
		assert.False(t, env.Success)
	}

	code, _ := call(t, r, http.MethodPut, "/installment-editor/"+session.ID+"/rows/v1", `{"number_of_installments":12}`)
	assert.Equal(t, http.StatusOK, code)
	code, _ = call(t, r, http.MethodPut, "/installment-editor/"+session.ID+"/rows/unknown", `{"number_of_installments":12}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSubmitPartialFailureReturnsRowResults(t *testing.T) {
	api := &planAPI{failFor: map[string]bool{"v2": true}}
	r, store := newRouter(t, api)
	session := openEditor(t, r)

	code, env := call(t, r, http.MethodPost, "/installment-editor/"+session.ID+"/submit", "")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)

	var result installment.SubmitResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Results, 2)
	assert.True(t, result.Results[0].Success)
	assert.False(t, result.Results[1].Success)
	assert.Equal(t, "v2", result.Results[1].ValidityID)

	// The working copy survives for a retry.
	assert.Contains(t, store.sessions, session.ID)
}

func TestSubmitSuccess(t *testing.T) {
	api := &planAPI{}
	r, store := newRouter(t, api)
	session := openEditor(t, r)

	code, env := call(t, r, http.MethodPost, "/installment-editor/"+session.ID+"/submit", "")
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Len(t, api.created, 2)
	assert.NotContains(t, store.sessions, session.ID)
}
