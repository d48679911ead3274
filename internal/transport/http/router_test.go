package httptransport

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceprint-server-go/internal/platform/errors"
	testhelpers "voiceprint-server-go/internal/platform/testing"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind errors.Kind
		want int
	}{
		{errors.KindValidation, http.StatusBadRequest},
		{errors.KindNotFound, http.StatusNotFound},
		{errors.KindExtraction, http.StatusUnprocessableEntity},
		{errors.KindThreshold, http.StatusUnauthorized},
		{errors.KindConflict, http.StatusConflict},
		{errors.KindDependency, http.StatusBadGateway},
		{errors.KindStorage, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		err := errors.New(tt.kind, "test", "boom")
		assert.Equal(t, tt.want, StatusFor(err), string(tt.kind))
	}
	assert.Equal(t, http.StatusInternalServerError, StatusFor(fmt.Errorf("plain")))
}

type stubVerifier map[string]string

func (s stubVerifier) Verify(token string) (string, error) {
	if user, ok := s[token]; ok {
		return user, nil
	}
	return "", fmt.Errorf("unknown token")
}

func TestBearerAuth(t *testing.T) {
	cfg := testhelpers.SetupTestConfig(t)
	router, err := Build(Options{
		Config:         cfg,
		AuthMiddleware: BearerAuth(stubVerifier{"good": "u1"}, nil),
	})
	require.NoError(t, err)
	router.Secured.GET("/whoami", func(c *gin.Context) {
		RespondSuccess(c, http.StatusOK, AuthenticatedUser(c), "")
	})
	router.API.GET("/open", func(c *gin.Context) {
		RespondSuccess(c, http.StatusOK, nil, "")
	})

	tests := []struct {
		path   string
		header string
		want   int
	}{
		{"/api/whoami", "", http.StatusUnauthorized},
		{"/api/whoami", "Bearer bad", http.StatusUnauthorized},
		{"/api/whoami", "Basic good", http.StatusUnauthorized},
		{"/api/whoami", "Bearer good", http.StatusOK},
		{"/api/open", "", http.StatusOK},
		{"/healthz", "", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		router.Engine.ServeHTTP(rec, req)
		assert.Equal(t, tt.want, rec.Code, "%s %q", tt.path, tt.header)
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	}
}

func TestRespondDomainErrorHidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RespondDomainError(c, errors.Wrap(errors.KindStorage, "store.get", "sqlite is down", fmt.Errorf("disk I/O error")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"internal error"`)
	assert.NotContains(t, rec.Body.String(), "disk")
}
