package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	storagemock "gitlab.com/timkado/api/daisi-call-campaign-engine/internal/storage/mock"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/tenant"
)

// callerEcho answers with the caller RequireCaller put on the context.
func callerEcho(members *storagemock.MemberDirectoryMock, v *TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", RequireCaller(v, members), func(c *gin.Context) {
		caller, err := tenant.CallerFromContext(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, caller)
	})
	return r
}

func TestRequireCaller_MemberLookup(t *testing.T) {
	v, err := NewTokenVerifier(testSecret, "", "")
	require.NoError(t, err)
	tok, err := v.Issue(time.Now(), "usr_1", "ws_1", "admin", time.Hour)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		member   *model.WorkspaceMember
		err      error
		wantCode int
		wantKind apperrors.Kind
	}{
		{
			name:     "membership role overrides token role",
			member:   &model.WorkspaceMember{ID: "mem_1", WorkspaceID: "ws_1", UserID: "usr_1", Role: tenant.RoleCaller},
			wantCode: http.StatusOK,
		},
		{
			name:     "not a member",
			err:      apperrors.NotFound("member", "usr_1"),
			wantCode: http.StatusForbidden,
			wantKind: apperrors.KindForbidden,
		},
		{
			name:     "directory unavailable",
			err:      fmt.Errorf("%w: pool exhausted", apperrors.ErrDatabase),
			wantCode: http.StatusInternalServerError,
			wantKind: apperrors.KindInternal,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			members := &storagemock.MemberDirectoryMock{}
			if tc.member != nil {
				members.On("ResolveMember", mock.Anything, "ws_1", "usr_1").Return(tc.member, nil).Once()
			} else {
				members.On("ResolveMember", mock.Anything, "ws_1", "usr_1").Return(nil, tc.err).Once()
			}

			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			w := httptest.NewRecorder()
			callerEcho(members, v).ServeHTTP(w, req)

			require.Equal(t, tc.wantCode, w.Code, w.Body.String())
			if tc.wantCode == http.StatusOK {
				caller := decode[tenant.Caller](t, w)
				assert.Equal(t, "mem_1", caller.MemberID)
				assert.Equal(t, tenant.RoleCaller, caller.Role)
			} else {
				body := decode[ErrorBody](t, w)
				assert.Equal(t, tc.wantKind, body.Error.Kind)
				assert.NotContains(t, body.Error.Message, "pool exhausted")
			}
			members.AssertExpectations(t)
		})
	}
}

func TestRequireCaller_NoTokenSkipsDirectory(t *testing.T) {
	v, err := NewTokenVerifier(testSecret, "", "")
	require.NoError(t, err)
	members := &storagemock.MemberDirectoryMock{}

	w := httptest.NewRecorder()
	callerEcho(members, v).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	members.AssertNotCalled(t, "ResolveMember", mock.Anything, mock.Anything, mock.Anything)
}
