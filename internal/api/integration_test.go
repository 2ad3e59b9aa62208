//go:build integration

package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/database"
	"github.com/saturnino-fabrica-de-software/facegate/internal/embedding"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
	"github.com/saturnino-fabrica-de-software/facegate/internal/service"
)

const testAPIKey = "integration-test-key"

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "facegate_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Printf("Failed to start container: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := container.Terminate(ctx); err != nil {
			fmt.Printf("Failed to terminate container: %v\n", err)
		}
	}()

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/facegate_test?sslmode=disable", host, port.Port())

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		os.Exit(1)
	}

	migrator, err := database.NewMigrator(db, "facegate_test")
	if err != nil {
		fmt.Printf("Failed to create migrator: %v\n", err)
		os.Exit(1)
	}
	if err := migrator.Up(); err != nil {
		fmt.Printf("Failed to run migrations: %v\n", err)
		os.Exit(1)
	}
	_ = db.Close()

	testPool, err = pgxpool.New(ctx, connStr)
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer testPool.Close()

	code := m.Run()
	os.Exit(code)
}

// newTestRouter wires the full stack against the container database
// with the deterministic mock face provider.
func newTestRouter(t *testing.T) *Router {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	identityRepo := repository.NewIdentityRepository(testPool)
	permissionRepo := repository.NewPermissionRepository(testPool)
	accessRepo := repository.NewAccessRepository(testPool)

	faceProvider := mock.New()
	store := embedding.NewStore(filepath.Join(dir, "embeddings.gob"), logger)
	recognition := service.NewRecognitionService(store, filepath.Join(dir, "classifier.gob"), faceProvider, logger)

	auditLog := &audit.NoOpLogger{}
	enrollment := service.NewEnrollmentService(identityRepo, permissionRepo, recognition, faceProvider, auditLog, logger, 30*time.Second)
	access := service.NewAccessService(permissionRepo, accessRepo, recognition, faceProvider, auditLog, logger, 0.5, 30*time.Second)

	router := NewRouter(logger, &Dependencies{
		IdentityRepo:   identityRepo,
		PermissionRepo: permissionRepo,
		AccessRepo:     accessRepo,
		Enrollment:     enrollment,
		Access:         access,
		APIKey:         testAPIKey,
		ReadyCheck: func(ctx context.Context) error {
			return testPool.Ping(ctx)
		},
	})
	router.Setup()

	return router
}

func cleanTables(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		"TRUNCATE access_logs, access_requests, permissions, identities RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

// faceBytes builds a deterministic fake face image large enough for
// the mock provider to accept.
func faceBytes(seed string) []byte {
	return bytes.Repeat([]byte(seed+" "), 32)
}

func enrollBody(t *testing.T, name string, levels []string, images [][]byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("name", name); err != nil {
		t.Fatalf("write name: %v", err)
	}
	for _, level := range levels {
		if err := w.WriteField("permissions", level); err != nil {
			t.Fatalf("write permission: %v", err)
		}
	}
	for i, img := range images {
		part, err := w.CreateFormFile("images", fmt.Sprintf("face%d.jpg", i))
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(img); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	return &buf, w.FormDataContentType()
}

func accessBody(t *testing.T, level string, image []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("level", level); err != nil {
		t.Fatalf("write level: %v", err)
	}
	part, err := w.CreateFormFile("image", "frame.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(image); err != nil {
		t.Fatalf("write image: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	return &buf, w.FormDataContentType()
}

func TestIntegration_HealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := router.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if result["status"] != "ok" {
		t.Errorf("status = %v, want ok", result["status"])
	}
}

func TestIntegration_ReadyEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/ready", nil)
	resp, err := router.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}
}

func TestIntegration_MissingAPIKey(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/v1/identities/1", nil)
	resp, err := router.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if resp.StatusCode != 401 {
		t.Errorf("Status = %d, want 401", resp.StatusCode)
	}
}

func TestIntegration_EnrollAndDecide(t *testing.T) {
	cleanTables(t)
	router := newTestRouter(t)

	aliceImages := [][]byte{faceBytes("alice-a"), faceBytes("alice-b"), faceBytes("alice-c")}
	bobImages := [][]byte{faceBytes("bob-a"), faceBytes("bob-b"), faceBytes("bob-c")}

	// 1. Enroll the first identity; no classifier can be trained yet
	body, contentType := enrollBody(t, "alice example", []string{"admin", "user"}, aliceImages)
	req := httptest.NewRequest("POST", "/v1/identities", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", testAPIKey)

	resp, err := router.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 201 {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("Status = %d, want 201 (%s)", resp.StatusCode, raw)
	}

	var alice struct {
		IdentityID int64    `json:"identity_id"`
		Name       string   `json:"name"`
		Faces      int      `json:"faces"`
		Levels     []string `json:"levels"`
		Trained    bool     `json:"trained"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &alice); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if alice.Name != "Alice Example" {
		t.Errorf("name = %q, want %q", alice.Name, "Alice Example")
	}
	if alice.Faces != 3 {
		t.Errorf("faces = %d, want 3", alice.Faces)
	}
	if alice.Trained {
		t.Error("classifier should not train with a single identity")
	}

	// 2. Enroll a second identity; training becomes possible
	body, contentType = enrollBody(t, "bob tester", []string{"user"}, bobImages)
	req = httptest.NewRequest("POST", "/v1/identities", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", testAPIKey)

	resp, err = router.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 201 {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("Status = %d, want 201 (%s)", resp.StatusCode, raw)
	}

	var bob struct {
		IdentityID int64 `json:"identity_id"`
		Trained    bool  `json:"trained"`
	}
	raw, _ = io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &bob); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if !bob.Trained {
		t.Error("classifier should train once two identities exist")
	}

	// 3. Alice presents a known face and holds the required level
	body, contentType = accessBody(t, "admin", aliceImages[0])
	req = httptest.NewRequest("POST", "/v1/access", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", testAPIKey)

	resp, err = router.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("Status = %d, want 200 (%s)", resp.StatusCode, raw)
	}

	var granted struct {
		Granted         bool    `json:"granted"`
		IdentityID      int64   `json:"identity_id"`
		AccessRequestID int64   `json:"access_request_id"`
		Confidence      float64 `json:"confidence"`
	}
	raw, _ = io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &granted); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if !granted.Granted {
		t.Error("expected access to be granted")
	}
	if granted.IdentityID != alice.IdentityID {
		t.Errorf("identity_id = %d, want %d", granted.IdentityID, alice.IdentityID)
	}
	if granted.AccessRequestID == 0 {
		t.Error("expected a ledger access_request_id")
	}

	// 4. Bob lacks the admin level; the attempt is recorded as denied
	body, contentType = accessBody(t, "admin", bobImages[0])
	req = httptest.NewRequest("POST", "/v1/access", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", testAPIKey)

	resp, err = router.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("Status = %d, want 200 (%s)", resp.StatusCode, raw)
	}

	var denied struct {
		Granted         bool  `json:"granted"`
		AccessRequestID int64 `json:"access_request_id"`
	}
	raw, _ = io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &denied); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if denied.Granted {
		t.Error("expected access to be denied")
	}
	if denied.AccessRequestID == 0 {
		t.Error("denied attempts must still land in the ledger")
	}

	// 5. A frame without any face is rejected without touching the ledger
	var before int64
	if err := testPool.QueryRow(context.Background(), "SELECT COUNT(*) FROM access_requests").Scan(&before); err != nil {
		t.Fatalf("count: %v", err)
	}

	body, contentType = accessBody(t, "user", bytes.Repeat([]byte("faceless "), 16))
	req = httptest.NewRequest("POST", "/v1/access", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", testAPIKey)

	resp, err = router.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode == 200 {
		t.Error("faceless frame should not produce a decision")
	}

	var after int64
	if err := testPool.QueryRow(context.Background(), "SELECT COUNT(*) FROM access_requests").Scan(&after); err != nil {
		t.Fatalf("count: %v", err)
	}
	if after != before {
		t.Errorf("access_requests count changed from %d to %d for a faceless frame", before, after)
	}
}

func TestIntegration_IdentityLifecycle(t *testing.T) {
	cleanTables(t)
	router := newTestRouter(t)

	body, contentType := enrollBody(t, "carla souza", []string{"moderator"}, [][]byte{faceBytes("carla-a"), faceBytes("carla-b")})
	req := httptest.NewRequest("POST", "/v1/identities", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", testAPIKey)

	resp, err := router.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 201 {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("Status = %d, want 201 (%s)", resp.StatusCode, raw)
	}

	var enrolled struct {
		IdentityID int64 `json:"identity_id"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &enrolled); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	// Read back by ID
	req = httptest.NewRequest("GET", fmt.Sprintf("/v1/identities/%d", enrolled.IdentityID), nil)
	req.Header.Set("Authorization", testAPIKey)
	resp, err = router.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var identity struct {
		Name   string   `json:"name"`
		Levels []string `json:"levels"`
	}
	raw, _ = io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &identity); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if identity.Name != "Carla Souza" {
		t.Errorf("name = %q, want %q", identity.Name, "Carla Souza")
	}

	// Read back by normalized name
	req = httptest.NewRequest("GET", "/v1/identities/by-name/Carla%20Souza", nil)
	req.Header.Set("Authorization", testAPIKey)
	resp, err = router.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	// Grant a second level and list permissions
	var form bytes.Buffer
	w := multipart.NewWriter(&form)
	_ = w.WriteField("level", "user")
	_ = w.Close()

	req = httptest.NewRequest("POST", fmt.Sprintf("/v1/identities/%d/permissions", enrolled.IdentityID), &form)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", testAPIKey)
	resp, err = router.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 204 {
		t.Fatalf("Status = %d, want 204", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", fmt.Sprintf("/v1/identities/%d/permissions", enrolled.IdentityID), nil)
	req.Header.Set("Authorization", testAPIKey)
	resp, err = router.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var perms []struct {
		Level string `json:"level"`
	}
	raw, _ = io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &perms); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(perms) != 2 {
		t.Errorf("permissions = %d, want 2", len(perms))
	}

	// Delete; identity and its permissions disappear
	req = httptest.NewRequest("DELETE", fmt.Sprintf("/v1/identities/%d", enrolled.IdentityID), nil)
	req.Header.Set("Authorization", testAPIKey)
	resp, err = router.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 204 {
		t.Fatalf("Status = %d, want 204", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", fmt.Sprintf("/v1/identities/%d", enrolled.IdentityID), nil)
	req.Header.Set("Authorization", testAPIKey)
	resp, err = router.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("Status = %d, want 404 after delete", resp.StatusCode)
	}
}

func TestIntegration_NotFoundReturns404(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/nonexistent", nil)
	resp, err := router.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if resp.StatusCode != 404 {
		t.Errorf("Status = %d, want 404", resp.StatusCode)
	}
}
