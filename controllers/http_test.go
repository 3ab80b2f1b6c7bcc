package controller_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"squadreg/config"
	"squadreg/models"
	"squadreg/routes"
	"squadreg/services"
	"squadreg/utils"
	"squadreg/worker"
)

const testIdentityKey = "http-test-key"

func TestMain(m *testing.M) {
	// The auth middleware reads the verifier singleton off the config.
	config.AppConfig.IdentityKey = testIdentityKey
	os.Exit(m.Run())
}

type testEnv struct {
	app     *fiber.App
	db      *gorm.DB
	svc     *services.Service
	cleanup *worker.CleanupWorker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Team{}, &models.Member{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	config.DB = db

	store, err := utils.NewAvatarStore(t.TempDir(), "/uploads", 1<<20, logger)
	if err != nil {
		t.Fatalf("avatar store: %v", err)
	}

	cleanup := worker.NewCleanupWorker(store, 16, logger)
	svc := services.NewService(db, store, cleanup, logger)
	cleanup.Sweeper = svc

	app := fiber.New()
	routes.SetupRoutes(app, svc, logger)

	return &testEnv{app: app, db: db, svc: svc, cleanup: cleanup}
}

func bearer(t *testing.T, subject string) string {
	t.Helper()
	token, err := utils.NewVerifier([]byte(testIdentityKey)).Sign(subject, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func multipartBody(t *testing.T, fields map[string]string, avatar []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if avatar != nil {
		part, err := w.CreateFormFile("avatar", "avatar.png")
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(avatar); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func (e *testEnv) createTeam(t *testing.T, subject, code, name string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"code": code, "name": name})
	req := httptest.NewRequest(http.MethodPost, "/teams", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, subject))
	resp := e.do(t, req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create team: status %d", resp.StatusCode)
	}
}

func (e *testEnv) join(t *testing.T, subject, code string, fields map[string]string, avatar []byte) *http.Response {
	t.Helper()
	base := map[string]string{
		"color":           "red",
		"job":             "attacker",
		"game_account_id": "G1",
		"nickname":        "Alice",
		"contact_id":      "10001",
	}
	for k, v := range fields {
		base[k] = v
	}
	body, contentType := multipartBody(t, base, avatar)
	req := httptest.NewRequest(http.MethodPost, "/teams/"+code+"/members", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearer(t, subject))
	return e.do(t, req)
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

func TestJoinFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.createTeam(t, "sub-1", "1234", "Alpha")

	resp := env.join(t, "sub-1", "1234", nil, pngBytes)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("join: status %d", resp.StatusCode)
	}
	var member models.Member
	decode(t, resp, &member)
	if member.TeamCode != "1234" || member.Color != models.ColorRed {
		t.Fatalf("unexpected member: %+v", member)
	}
	if member.MediaLocator == nil {
		t.Fatal("expected avatar locator")
	}

	req := httptest.NewRequest(http.MethodGet, "/teams/1234", nil)
	resp = env.do(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("check team: status %d", resp.StatusCode)
	}
	var roster struct {
		Members []models.Member `json:"members"`
	}
	decode(t, resp, &roster)
	if len(roster.Members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(roster.Members))
	}
}

func TestJoinRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	env.createTeam(t, "sub-1", "1234", "Alpha")

	body, contentType := multipartBody(t, map[string]string{"color": "red"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/teams/1234/members", body)
	req.Header.Set("Content-Type", contentType)
	resp := env.do(t, req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestJoinConflictNamesSlot(t *testing.T) {
	env := newTestEnv(t)
	env.createTeam(t, "sub-1", "1234", "Alpha")
	if resp := env.join(t, "sub-1", "1234", nil, nil); resp.StatusCode != http.StatusCreated {
		t.Fatalf("first join: status %d", resp.StatusCode)
	}

	resp := env.join(t, "sub-2", "1234", map[string]string{
		"game_account_id": "G2",
		"job":             "defender",
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	var errBody struct {
		Field string `json:"field"`
		Kind  string `json:"kind"`
	}
	decode(t, resp, &errBody)
	if errBody.Field != "color" || errBody.Kind != string(services.KindConflict) {
		t.Fatalf("expected color conflict, got %+v", errBody)
	}
}

func TestEditMeNoChanges(t *testing.T) {
	env := newTestEnv(t)
	env.createTeam(t, "sub-1", "1234", "Alpha")
	if resp := env.join(t, "sub-1", "1234", nil, nil); resp.StatusCode != http.StatusCreated {
		t.Fatalf("join: status %d", resp.StatusCode)
	}

	body, contentType := multipartBody(t, map[string]string{"nickname": "Alice"}, nil)
	req := httptest.NewRequest(http.MethodPatch, "/members/me", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearer(t, "sub-1"))
	resp := env.do(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("edit: status %d", resp.StatusCode)
	}
	var result struct {
		Message string `json:"message"`
	}
	decode(t, resp, &result)
	if result.Message != "no changes" {
		t.Fatalf("expected no-op indication, got %+v", result)
	}
}

func TestDeleteMeCascadesOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.createTeam(t, "sub-1", "1234", "Alpha")
	if resp := env.join(t, "sub-1", "1234", nil, nil); resp.StatusCode != http.StatusCreated {
		t.Fatalf("join: status %d", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodDelete, "/members/me", nil)
	req.Header.Set("Authorization", bearer(t, "sub-1"))
	resp := env.do(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}

	// Run the deferred cleanup the worker goroutine would.
	env.cleanup.Drain()

	req = httptest.NewRequest(http.MethodGet, "/teams/1234", nil)
	resp = env.do(t, req)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected team swept away, got %d", resp.StatusCode)
	}
}

func TestAdminSurfaceRequiresPrivilege(t *testing.T) {
	env := newTestEnv(t)
	env.createTeam(t, "sub-1", "1234", "Alpha")
	if resp := env.join(t, "sub-1", "1234", nil, nil); resp.StatusCode != http.StatusCreated {
		t.Fatalf("join: status %d", resp.StatusCode)
	}

	body, contentType := multipartBody(t, map[string]string{"nickname": "X"}, nil)
	req := httptest.NewRequest(http.MethodPatch, "/admin/members/1", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearer(t, "sub-1"))
	resp := env.do(t, req)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestAdminEditPrivilegedFields(t *testing.T) {
	env := newTestEnv(t)
	env.createTeam(t, "admin-sub", "1234", "Alpha")
	env.createTeam(t, "admin-sub", "5678", "Beta")

	resp := env.join(t, "sub-1", "1234", nil, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("join: status %d", resp.StatusCode)
	}
	var member models.Member
	decode(t, resp, &member)

	// Privilege is granted out-of-band, never through the API.
	adminSubject := "admin-sub"
	admin := models.Member{
		TeamCode:          "5678",
		Color:             models.ColorBlue,
		Job:               models.JobSupporter,
		GameAccountID:     "ADMIN",
		Nickname:          "Op",
		ContactID:         "99999",
		ExternalSubjectID: &adminSubject,
		IsPrivileged:      true,
		JoinedAt:          time.Now(),
	}
	if err := env.db.Create(&admin).Error; err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	body, contentType := multipartBody(t, map[string]string{"game_account_id": "G42"}, nil)
	req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/admin/members/%d", member.ID), body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", bearer(t, adminSubject))
	resp = env.do(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin edit: status %d", resp.StatusCode)
	}
	var updated models.Member
	decode(t, resp, &updated)
	if updated.GameAccountID != "G42" {
		t.Fatalf("expected account fix, got %+v", updated)
	}
}
