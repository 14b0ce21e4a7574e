package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"friendboard/internal/auth"
	"friendboard/internal/domain"
	"friendboard/internal/repository"
	"friendboard/internal/service"
)

type stubUserService struct {
	registerCreds *service.Credentials
	registerErr   error
	authCreds     *service.Credentials
	authErr       error
	getUser       *domain.User
	getErr        error
	listOut       []domain.UserSummary
	updateUser    *domain.User
	updateErr     error
	deleteErr     error

	lastRegister service.RegisterInput
}

func (s *stubUserService) Register(ctx context.Context, in service.RegisterInput) (*service.Credentials, error) {
	s.lastRegister = in
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return s.registerCreds, nil
}

func (s *stubUserService) Authenticate(ctx context.Context, nickname, password string) (*service.Credentials, error) {
	if s.authErr != nil {
		return nil, s.authErr
	}
	return s.authCreds, nil
}

func (s *stubUserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.getUser, nil
}

func (s *stubUserService) ListAll(ctx context.Context) ([]domain.UserSummary, error) {
	return s.listOut, nil
}

func (s *stubUserService) Update(ctx context.Context, id string, in service.UpdateInput) (*domain.User, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.updateUser, nil
}

func (s *stubUserService) Delete(ctx context.Context, id string) error {
	return s.deleteErr
}

func testUser() *domain.User {
	return &domain.User{
		ID:       "user-1",
		Nickname: "alice",
		Email:    "alice@example.com",
		ImageURL: "https://blobs.example.com/avatars/a.png",
	}
}

func newTestRouter(t *testing.T, svc service.UserService) (*gin.Engine, *auth.TokenIssuer) {
	t.Helper()

	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(svc, tokens, t.TempDir()).RegisterRoutes(router)
	return router, tokens
}

func multipartBody(t *testing.T, fields map[string]string, withImage bool) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if withImage {
		part, err := w.CreateFormFile("image", "avatar.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("png-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestRegisterRoute(t *testing.T) {
	svc := &stubUserService{
		registerCreds: &service.Credentials{User: testUser(), Token: "tok"},
	}
	router, _ := newTestRouter(t, svc)

	body, contentType := multipartBody(t, map[string]string{
		"nickname": "alice",
		"email":    "alice@example.com",
		"password": "hunter22",
	}, true)

	req := httptest.NewRequest(http.MethodPost, "/api/users", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "alice", svc.lastRegister.Nickname)
	require.NotNil(t, svc.lastRegister.Image, "image part must reach the service")

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "tok", resp.Token)
	require.Equal(t, "alice", resp.Nickname)
}

func TestRegisterRouteWithoutImage(t *testing.T) {
	svc := &stubUserService{
		registerErr: &service.ValidationError{Field: "image"},
	}
	router, _ := newTestRouter(t, svc)

	body, contentType := multipartBody(t, map[string]string{"nickname": "alice"}, false)
	req := httptest.NewRequest(http.MethodPost, "/api/users", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Nil(t, svc.lastRegister.Image)
}

func TestRegisterRouteDuplicate(t *testing.T) {
	svc := &stubUserService{
		registerErr: &repository.DuplicateError{Field: "nickname"},
	}
	router, _ := newTestRouter(t, svc)

	body, contentType := multipartBody(t, map[string]string{"nickname": "alice"}, true)
	req := httptest.NewRequest(http.MethodPost, "/api/users", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginRoute(t *testing.T) {
	svc := &stubUserService{
		authCreds: &service.Credentials{User: testUser(), Token: "tok"},
	}
	router, _ := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/users/login",
		strings.NewReader(`{"nickname":"alice","password":"hunter22"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRouteInvalidCredentials(t *testing.T) {
	svc := &stubUserService{authErr: service.ErrInvalidCredentials}
	router, _ := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/users/login",
		strings.NewReader(`{"nickname":"alice","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	svc := &stubUserService{getUser: testUser()}
	router, tokens := newTestRouter(t, svc)

	// no token
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// garbage token
	req = httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// valid token
	token, err := tokens.Issue("user-1")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "alice", resp.Nickname)
}

func TestListUsersRoute(t *testing.T) {
	svc := &stubUserService{
		getUser: testUser(),
		listOut: []domain.UserSummary{
			{ID: "user-1", Nickname: "alice", ImageURL: "https://blobs.example.com/a.png"},
			{ID: "user-2", Nickname: "bob", ImageURL: "https://blobs.example.com/b.png"},
		},
	}
	router, tokens := newTestRouter(t, svc)

	token, err := tokens.Issue("user-1")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/users/all", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	for _, entry := range resp {
		require.Contains(t, entry, "id")
		require.Contains(t, entry, "nickname")
		require.Contains(t, entry, "image")
		require.NotContains(t, entry, "email")
		require.NotContains(t, entry, "token")
	}
}

func TestDeleteUserRoute(t *testing.T) {
	svc := &stubUserService{getUser: testUser()}
	router, tokens := newTestRouter(t, svc)

	token, err := tokens.Issue("user-1")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodDelete, "/api/users/user-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDeleteUnknownUserRoute(t *testing.T) {
	svc := &stubUserService{getUser: testUser(), deleteErr: repository.ErrNotFound}
	router, tokens := newTestRouter(t, svc)

	token, err := tokens.Issue("user-1")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodDelete, "/api/users/ghost", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
