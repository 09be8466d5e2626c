package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dashboard/internal/config"
	"dashboard/internal/dataset"
	"dashboard/internal/pipeline"
	"dashboard/internal/repository"
	"dashboard/internal/results"
	"dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func writeXLSX(t *testing.T, path string, tbl *dataset.Table) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, dataset.WriteXLSX(f, tbl))
	require.NoError(t, f.Close())
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()

	cfg := &config.Config{}
	zero := 0.0
	cfg.Delays = config.Delays{
		LoadingSeconds:      &zero,
		ProcessingSeconds:   &zero,
		TransformingSeconds: &zero,
		InferenceSeconds:    &zero,
	}
	cfg.Database.URL = filepath.Join(dir, "test.db")
	cfg.Results.DiscardedPath = filepath.Join(dir, "discarded.xlsx")
	cfg.Results.RankedPath = filepath.Join(dir, "ranked.xlsx")
	cfg.Branding.LogoPath = filepath.Join(dir, "missing.png")
	cfg.ApplyDefaults()

	writeXLSX(t, cfg.Results.DiscardedPath, &dataset.Table{
		Columns: []string{"ID", "MOTIVO"},
		Rows:    [][]string{{"7", "idade"}},
	})
	writeXLSX(t, cfg.Results.RankedPath, &dataset.Table{
		Columns: []string{"ID", "SCORE", "RISCO"},
		Rows: [][]string{
			{"1", "0.41", "MODERADO"},
			{"2", "0.93", "ALTO"},
			{"3", "0.88", "ALTO"},
			{"4", "0.05", "BAIXO"},
		},
	})

	db, err := repository.NewDB(cfg.Database.Type, cfg.Database.URL, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repository.MigrateDB(db, cfg.Database.Type, logger))

	store := results.NewStore(cfg.Results.DiscardedPath, cfg.Results.RankedPath, cfg.Results.RiskColumn)
	dash := service.NewDashboardService(
		repository.NewUploadRepository(db, logger),
		store,
		pipeline.NewSimulator(cfg.Delays.Durations(), logger),
		logger,
	)
	auth := service.NewAuthService(
		repository.NewAuthRepository(db, logger),
		repository.NewSessionRepository(db, logger),
		dash,
		[]byte(cfg.Auth.JWTSecret),
		cfg.TokenTTL(),
		logger,
	)
	require.NoError(t, auth.EnsureOperator(context.Background(), cfg.Auth.Username, cfg.Auth.Password))

	accessLog := logrus.New()
	accessLog.SetOutput(&bytes.Buffer{})

	srv, err := NewServer(cfg, auth, dash, store, logger, accessLog)
	require.NoError(t, err)
	return srv
}

type client struct {
	t      *testing.T
	srv    *Server
	cookie *http.Cookie
	token  string
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) postJSON(path string, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	require.NoError(c.t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) upload(path, filename string, content []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(c.t, err)
	_, err = part.Write(content)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (c *client) loginForm(username, password string) *httptest.ResponseRecorder {
	rec := c.postForm("/login", url.Values{"username": {username}, "password": {password}})
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "huna_session" && ck.Value != "" {
			c.cookie = ck
		}
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const sampleCSV = "ID,IDADE,NEUTRÓFILOS\n1,64,4.2\n2,71,3.9\n"

func TestPing(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t)}
	rec := c.get("/ping")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pong")
}

func TestPages_RequireLogin(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t)}

	for _, path := range []string{"/", "/charts/filtering.png", "/downloads/ranked"} {
		rec := c.get(path)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}

	rec := c.get("/api/session")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.get("/login")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/login"`)
}

func TestLoginForm(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t)}

	rec := c.loginForm("admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Usuário ou senha incorretos")
	assert.Nil(t, c.cookie)

	rec = c.loginForm("admin", "admin")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?login=ok", rec.Header().Get("Location"))
	require.NotNil(t, c.cookie)
	assert.True(t, c.cookie.HttpOnly)

	rec = c.get("/?login=ok")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login bem-sucedido!")
	assert.Contains(t, rec.Body.String(), "1️⃣ Template")
	assert.Contains(t, rec.Body.String(), "2️⃣ Guia de Dados")
	assert.Contains(t, rec.Body.String(), "docs.google.com/spreadsheets/")
	assert.Contains(t, rec.Body.String(), `action="/upload"`)
	assert.NotContains(t, rec.Body.String(), "Dados rankeados")
}

func TestLogoutForm_EndsSession(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t)}
	c.loginForm("admin", "admin")
	require.NotNil(t, c.cookie)

	rec := c.postForm("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	// The old token is revoked server side even if the browser keeps it.
	rec = c.get("/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestDashboardFlow(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t)}
	c.loginForm("admin", "admin")
	require.NotNil(t, c.cookie)

	rec := c.upload("/upload", "dados.txt", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Formato de arquivo não suportado!")
	assert.NotContains(t, rec.Body.String(), `action="/inference"`)

	rec = c.upload("/upload", "dados.csv", []byte(sampleCSV))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Arquivo carregado com sucesso!")
	assert.Contains(t, body, "Deseja fazer a inferência com estes dados?")
	assert.Contains(t, body, "<th>NEUTRÓFILOS</th>")
	assert.NotContains(t, body, "Dados rankeados")

	rec = c.postForm("/inference", url.Values{"confirm": {"Talvez"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.postForm("/inference", url.Values{"confirm": {"Sim"}})
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "Filtro aplicado nos dados:")
	assert.Contains(t, body, "Dados rankeados:")
	assert.Contains(t, body, "data:"+results.XLSXContentType+";base64,")
	assert.Contains(t, body, `<option value="MODERADO" selected>`)

	rec = c.get("/?risk=ALTO")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, `<option value="ALTO" selected>`)
	assert.Contains(t, body, "<td>0.93</td>")
	assert.NotContains(t, body, "<td>0.05</td>")

	rec = c.postForm("/inference", url.Values{"confirm": {"Não"}})
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "Faça o upload do arquivo")
	assert.NotContains(t, body, `action="/inference"`)
	assert.NotContains(t, body, "Dados rankeados")
}

func TestAssets(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t)}
	c.loginForm("admin", "admin")

	rec := c.get("/charts/filtering.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	for _, style := range []string{"bar", "stacked"} {
		rec = c.get("/charts/risk.png?style=" + style)
		require.Equal(t, http.StatusOK, rec.Code, style)
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")), style)
	}

	rec = c.get("/downloads/ranked")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, results.XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="ranked.xlsx"`)
	tbl, err := dataset.Read("ranked.xlsx", rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 4, tbl.Len())

	rec = c.get("/downloads/other")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.get("/static/logo")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIFlow(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t)}

	rec := c.postJSON("/api/auth/login", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.postJSON("/api/auth/login", map[string]string{"username": "admin", "password": "admin"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode(t, rec)
	assert.Equal(t, "Login bem-sucedido!", login["message"])
	c.token = login["token"].(string)

	rec = c.get("/api/session")
	require.Equal(t, http.StatusOK, rec.Code)
	session := decode(t, rec)
	assert.Equal(t, "admin", session["username"])
	assert.EqualValues(t, 1, session["failed_login_attempts"])

	rec = c.get("/api/uploads/current")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.get("/api/results/ranked")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.upload("/api/uploads", "dados.json", []byte("{}"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Formato de arquivo não suportado!", decode(t, rec)["error"])

	rec = c.upload("/api/uploads", "dados.CSV", []byte(sampleCSV))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = c.get("/api/uploads/current")
	require.Equal(t, http.StatusOK, rec.Code)
	current := decode(t, rec)
	assert.Equal(t, false, current["confirmed"])

	rec = c.postJSON("/api/uploads/current/inference", map[string]string{"confirm": "Sim"})
	require.Equal(t, http.StatusOK, rec.Code)
	stages := decode(t, rec)["stages"].([]any)
	require.Len(t, stages, 6)
	assert.Equal(t, "Dataset Inicial", stages[0].(map[string]any)["etapa"])
	assert.EqualValues(t, 1955, stages[0].(map[string]any)["tamanho"])

	rec = c.get("/api/results/ranked?risk=ALTO")
	require.Equal(t, http.StatusOK, rec.Code)
	ranked := decode(t, rec)
	assert.Equal(t, "ALTO", ranked["selected"])
	assert.EqualValues(t, 2, ranked["total"])

	rec = c.get("/api/results/ranked?risk=alto")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["total"])

	rec = c.get("/api/results/risk-counts")
	require.Equal(t, http.StatusOK, rec.Code)
	counts := decode(t, rec)["counts"].([]any)
	require.Len(t, counts, 4)
	assert.Equal(t, "ALTO", counts[0].(map[string]any)["risco"])
	assert.EqualValues(t, 2, counts[0].(map[string]any)["total"])

	rec = c.get("/api/results/discarded")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = c.get("/api/uploads?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = c.get("/api/uploads?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.postJSON("/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = c.get("/api/session")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
