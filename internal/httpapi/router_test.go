package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/storage"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/usecase"
)

const (
	testSecret    = "test-secret"
	testWorkspace = "ws_http"
)

type apiFixture struct {
	router   *gin.Engine
	repo     *storage.MemoryRepo
	verifier *TokenVerifier
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := storage.NewMemoryRepo()
	repo.PutMember(model.WorkspaceMember{ID: "mem_admin", WorkspaceID: testWorkspace, UserID: "usr_admin", Role: "admin"})
	repo.PutMember(model.WorkspaceMember{ID: "mem_alice", WorkspaceID: testWorkspace, UserID: "usr_alice", Role: "caller"})
	repo.PutStudent(model.Student{ID: "stu_1", WorkspaceID: testWorkspace, GroupID: "grp_1", Name: "Dana"})

	verifier, err := NewTokenVerifier(testSecret, "crm", "")
	require.NoError(t, err)

	router := NewRouter(RouterDeps{
		Service:        usecase.NewService(repo, nil, nil, nil),
		Verifier:       verifier,
		Members:        repo.Members(),
		Logger:         zaptest.NewLogger(t),
		RequestTimeout: 5 * time.Second,
	})
	return &apiFixture{router: router, repo: repo, verifier: verifier}
}

func (f *apiFixture) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := f.verifier.Issue(time.Now(), userID, testWorkspace, "caller", time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// seedAssignedItem creates a yes/no campaign with one item held by alice.
func (f *apiFixture) seedAssignedItem(t *testing.T) (model.CallList, model.CallListItem) {
	t.Helper()
	adminTok := f.token(t, "usr_admin")

	w := f.do(t, http.MethodPost, "/v1/call-lists", adminTok, model.CreateCallListInput{
		Name:      "Spring intake",
		Questions: []model.Question{{ID: "q1", Question: "Still interested?", Type: model.QuestionYesNo, Required: true}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	list := decode[model.CallList](t, w)

	holder := "mem_alice"
	w = f.do(t, http.MethodPost, "/v1/call-lists/"+list.ID+"/items", adminTok, model.AddItemsInput{
		Items: []model.NewItemInput{{StudentID: "stu_1", AssignedTo: &holder}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[model.AddItemsResult](t, w)
	require.Len(t, res.Created, 1)
	return list, res.Created[0]
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth(t *testing.T) {
	f := newAPIFixture(t)

	other, err := NewTokenVerifier("another-secret", "crm", "")
	require.NoError(t, err)
	forged, err := other.Issue(time.Now(), "usr_admin", testWorkspace, "admin", time.Hour)
	require.NoError(t, err)
	expired, err := f.verifier.Issue(time.Now().Add(-2*time.Hour), "usr_admin", testWorkspace, "admin", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		status int
		kind   apperrors.Kind
	}{
		{"missing token", "", http.StatusUnauthorized, apperrors.KindUnauth},
		{"wrong secret", forged, http.StatusUnauthorized, apperrors.KindUnauth},
		{"expired", expired, http.StatusUnauthorized, apperrors.KindUnauth},
		{"not a member", f.token(t, "usr_stranger"), http.StatusForbidden, apperrors.KindForbidden},
		{"member", f.token(t, "usr_alice"), http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/v1/call-lists", tt.token, nil)
			assert.Equal(t, tt.status, w.Code)
			if tt.kind != "" {
				assert.Equal(t, tt.kind, decode[ErrorBody](t, w).Error.Kind)
			}
			assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
		})
	}
}

func TestTokenVerifier_Audience(t *testing.T) {
	v, err := NewTokenVerifier(testSecret, "crm", "call-campaigns")
	require.NoError(t, err)
	now := time.Now()

	tok, err := v.Issue(now, "usr_1", "ws_1", "caller", time.Minute)
	require.NoError(t, err)
	claims, err := v.Verify(tok, now)
	require.NoError(t, err)
	assert.Equal(t, "usr_1", claims.UserID)
	assert.Equal(t, "ws_1", claims.WorkspaceID)

	noAudience, err := NewTokenVerifier(testSecret, "crm", "")
	require.NoError(t, err)
	tok, err = noAudience.Issue(now, "usr_1", "ws_1", "caller", time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(tok, now)
	assert.Error(t, err)

	_, err = NewTokenVerifier("", "", "")
	assert.Error(t, err)
}

func TestCallerRoleComesFromMembership(t *testing.T) {
	f := newAPIFixture(t)

	// alice's token claims admin, but her membership says caller.
	tok, err := f.verifier.Issue(time.Now(), "usr_alice", testWorkspace, "admin", time.Hour)
	require.NoError(t, err)
	w := f.do(t, http.MethodPost, "/v1/call-lists", tok, model.CreateCallListInput{Name: "Nope"})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCallFlow(t *testing.T) {
	f := newAPIFixture(t)
	list, item := f.seedAssignedItem(t)
	aliceTok := f.token(t, "usr_alice")

	// A mismatched answer type is rejected with the question id as field.
	w := f.do(t, http.MethodPost, "/v1/call-logs", aliceTok, map[string]interface{}{
		"call_list_item_id": item.ID,
		"status":            "completed",
		"answers":           []map[string]interface{}{{"question_id": "q1", "answer": "maybe"}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	body := decode[ErrorBody](t, w)
	assert.Equal(t, apperrors.KindValidation, body.Error.Kind)
	assert.Equal(t, "q1", body.Error.Field)

	w = f.do(t, http.MethodPost, "/v1/call-logs", aliceTok, map[string]interface{}{
		"call_list_item_id":  item.ID,
		"status":             "completed",
		"answers":            []map[string]interface{}{{"question_id": "q1", "answer": true}},
		"follow_up_required": true,
		"follow_up_date":     time.Now().Add(48 * time.Hour).UTC().Format("2006-01-02"),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	detail := decode[model.CallLogDetail](t, w)
	assert.Equal(t, "mem_alice", detail.AssignedTo)
	require.NotNil(t, detail.Followup)

	w = f.do(t, http.MethodGet, "/v1/items/"+item.ID+"/latest-log", aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, detail.ID, decode[model.CallLog](t, w).ID)

	w = f.do(t, http.MethodGet, "/v1/call-lists/"+list.ID+"/call-logs", aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[model.PageResult[model.CallLog]](t, w).Total)

	w = f.do(t, http.MethodGet, "/v1/my-calls?follow_up_required=true", aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	myCalls := decode[model.PageResult[model.MyCallItem]](t, w)
	require.Len(t, myCalls.Items, 1)
	assert.Equal(t, "stu_1", myCalls.Items[0].StudentID)

	w = f.do(t, http.MethodGet, "/v1/my-calls/stats", aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[model.MyCallsStats](t, w)
	assert.Equal(t, int64(1), stats.Done)
	assert.Equal(t, int64(1), stats.PendingFollowups)

	w = f.do(t, http.MethodGet, "/v1/followups/"+detail.Followup.ID+"/call-context", aliceTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/v1/followups/"+detail.Followup.ID+"/complete", aliceTok, map[string]interface{}{
		"status":  "completed",
		"answers": []map[string]interface{}{{"question_id": "q1", "answer": false}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Completing twice is NotFound, not a conflict.
	w = f.do(t, http.MethodPost, "/v1/followups/"+detail.Followup.ID+"/complete", aliceTok, map[string]interface{}{
		"status":  "completed",
		"answers": []map[string]interface{}{},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorMapping(t *testing.T) {
	f := newAPIFixture(t)
	_, item := f.seedAssignedItem(t)
	aliceTok := f.token(t, "usr_alice")

	w := f.do(t, http.MethodGet, "/v1/call-lists/missing", aliceTok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.KindNotFound, decode[ErrorBody](t, w).Error.Kind)

	w = f.do(t, http.MethodPost, "/v1/call-lists/whatever/archive", aliceTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/call-logs", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+aliceTok)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = f.do(t, http.MethodGet, "/v1/my-calls?follow_up_scope=theirs", aliceTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPatch, "/v1/items/"+item.ID, aliceTok, map[string]interface{}{"state": "DONE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "state", decode[ErrorBody](t, w).Error.Field)
}

func TestAssignEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	f.repo.PutMember(model.WorkspaceMember{ID: "mem_bob", WorkspaceID: testWorkspace, UserID: "usr_bob", Role: "caller"})
	_, item := f.seedAssignedItem(t)

	w := f.do(t, http.MethodPost, "/v1/items/assign", f.token(t, "usr_bob"), model.AssignInput{ItemIDs: []string{item.ID, "missing"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[model.AssignmentResult](t, w)
	assert.Empty(t, res.Updated)
	require.Len(t, res.Skipped, 2)

	w = f.do(t, http.MethodPost, "/v1/items/unassign", f.token(t, "usr_alice"), model.UnassignInput{ItemIDs: []string{item.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{item.ID}, decode[model.AssignmentResult](t, w).Updated)

	ghost := "mem_ghost"
	w = f.do(t, http.MethodPost, "/v1/items/assign", f.token(t, "usr_admin"), model.AssignInput{ItemIDs: []string{item.ID}, AssignedTo: &ghost})
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	assert.Equal(t, apperrors.KindNotFound, decode[ErrorBody](t, w).Error.Kind)
}
