package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/upwave/upwave/internal/apperr"
	"github.com/upwave/upwave/internal/handlers"
	mwauth "github.com/upwave/upwave/internal/middleware/auth"
	"github.com/upwave/upwave/internal/models"
	"github.com/upwave/upwave/internal/mykafka"
	"github.com/upwave/upwave/internal/repo"
	"github.com/upwave/upwave/internal/service"
	"github.com/upwave/upwave/internal/tokens"
	httpserver "github.com/upwave/upwave/internal/transport/http"
)

// testApp is a fully wired server over an in-memory database, minus the
// optional search and media backends.
type testApp struct {
	e    *echo.Echo
	db   *gorm.DB
	repo *repo.GormRepo
	svc  *service.AuthService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}, &models.Upvote{}))

	gormRepo := repo.New(db)
	codec := tokens.NewCodec([]byte("test-secret"))
	producer := mykafka.NewProducer(nil)

	svc := &service.AuthService{
		Repo:       gormRepo,
		Codec:      codec,
		AccessTTL:  10 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Producer:   producer,
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler

	httpserver.Register(e, &httpserver.Deps{
		Auth:          mwauth.New(gormRepo, codec),
		AuthHandler:   &handlers.AuthHandler{Svc: svc},
		UserHandler:   &handlers.UserHandler{Repo: gormRepo},
		PostHandler:   &handlers.PostHandler{Repo: gormRepo, Producer: producer, Index: "posts"},
		SearchHandler: &handlers.SearchHandler{Index: "posts"},
	})

	return &testApp{e: e, db: db, repo: gormRepo, svc: svc}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
}

// errorCode pulls error_code out of the standard error body.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body apperr.ErrorBody
	decodeBody(t, rec, &body)
	return body.ErrorCode
}

func registerAndLogin(t *testing.T, a *testApp, email, username, password string) (string, string) {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/v1/register", "", echo.Map{
		"email": email, "username": username, "password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/v1/login", "", echo.Map{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decodeBody(t, rec, &res)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)
	return res.AccessToken, res.RefreshToken
}

func login(t *testing.T, a *testApp, email, password string) (string, string) {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/v1/login", "", echo.Map{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decodeBody(t, rec, &res)
	return res.AccessToken, res.RefreshToken
}

func promoteToAdmin(t *testing.T, a *testApp, email string) {
	t.Helper()
	require.NoError(t, a.db.Model(&models.User{}).Where("email = ?", email).Update("is_admin", true).Error)
}
