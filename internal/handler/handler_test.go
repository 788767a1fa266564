package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"legaldocs/internal/blobstore"
	"legaldocs/internal/middleware"
	"legaldocs/internal/repository"
	"legaldocs/internal/service"
	"legaldocs/internal/testutil"
	"legaldocs/internal/translator"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const testSecret = "handler-secret"

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Meta       json.RawMessage `json:"meta"`
	Error      string          `json:"error"`
	Details    json.RawMessage `json:"details"`
}

type api struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	blobs, err := blobstore.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := zap.NewNop()
	tx := repository.NewTransactionManager(db)
	docRepo := repository.NewDocumentRepository(db)
	verRepo := repository.NewVersionRepository(db)
	segRepo := repository.NewSegmentRepository(db)
	trRepo := repository.NewTranslationRepository(db)
	pkgRepo := repository.NewPackageRepository(db)

	audit := service.NewAuditService(repository.NewAuditRepository(db))
	documents := service.NewDocumentService(docRepo, tx, audit, service.DocumentDefaults{SourceLang: "vi", RequiredLangs: []string{"en"}}, logger)
	segments := service.NewSegmentService(segRepo, verRepo, tx)
	approvals := service.NewApprovalService(service.ApprovalServiceDeps{
		Approvals: repository.NewApprovalRepository(db), Versions: verRepo, Documents: docRepo,
		Translations: trRepo, Tx: tx, Audit: audit, Logger: logger,
	})
	versions := service.NewVersionService(service.VersionServiceDeps{
		Documents: docRepo, Versions: verRepo, Packages: pkgRepo, Segments: segments,
		Tx: tx, Blobs: blobs, Audit: audit, Gate: approvals, Logger: logger,
	})
	engine := translator.NewEngine(translator.Func(func(_ context.Context, text, _, _ string) (string, error) {
		return strings.ToUpper(text), nil
	}), translator.EngineConfig{Generative: map[translator.Pair]bool{{Source: "vi", Target: "en"}: true}}, logger)
	translations := service.NewTranslationService(service.TranslationServiceDeps{
		Translations: trRepo, Segments: segRepo, Versions: verRepo, Documents: docRepo,
		Tx: tx, VersionSvc: versions, Engine: engine, Audit: audit, Concurrency: 2, Logger: logger,
	})
	export := service.NewExportService(service.ExportServiceDeps{
		Versions: verRepo, Documents: docRepo, Segments: segRepo, Translations: trRepo, Packages: pkgRepo,
		Tx: tx, VersionSvc: versions, Approvals: approvals, Audit: audit, Blobs: blobs,
		PublicBaseURL: "https://verify.example.com", Logger: logger,
	})
	verify := service.NewVerifyService(service.VerifyServiceDeps{
		Versions: verRepo, Documents: docRepo, Segments: segRepo, Translations: trRepo,
		Packages: pkgRepo, Approvals: approvals, Audit: audit,
	})

	auth := middleware.NewAuth(testSecret)
	r := gin.New()
	root := r.Group("")
	NewDocumentHandler(documents, versions, auth).RegisterRoutes(root)
	NewVersionHandler(versions, segments, auth).RegisterRoutes(root)
	NewTranslationHandler(translations, auth, nil).RegisterRoutes(root)
	NewApprovalHandler(approvals, auth).RegisterRoutes(root)
	NewExportHandler(export, verify, auth, nil).RegisterRoutes(root)
	NewAuditHandler(audit, auth).RegisterRoutes(root)
	return &api{t: t, router: r}
}

func token(t *testing.T, sub, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub, "role": role}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func (a *api) do(method, path, role string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			a.t.Fatal(err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+token(a.t, role+"-1", role))
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			a.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w, env
}

func (a *api) expect(method, path, role string, body interface{}, want int) envelope {
	a.t.Helper()
	w, env := a.do(method, path, role, body)
	if w.Code != want {
		a.t.Fatalf("%s %s = %d, want %d: %s", method, path, w.Code, want, w.Body.String())
	}
	return env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func TestDocumentRoutes_Auth(t *testing.T) {
	a := newAPI(t)
	body := map[string]interface{}{"type": "agreement", "name": "Lease"}

	a.expect(http.MethodPost, "/api/documents", "", body, http.StatusUnauthorized)
	a.expect(http.MethodPost, "/api/documents", "translator", body, http.StatusForbidden)
	env := a.expect(http.MethodPost, "/api/documents", "lawyer", body, http.StatusCreated)

	var doc service.DocumentResponse
	decode(t, env.Data, &doc)
	if doc.CreatedBy != "lawyer-1" || doc.SourceLang != "vi" {
		t.Fatalf("document = %+v", doc)
	}

	env = a.expect(http.MethodGet, "/api/documents?page=1&limit=5", "translator", nil, http.StatusOK)
	var meta struct {
		Total int `json:"total"`
		Limit int `json:"limit"`
	}
	decode(t, env.Meta, &meta)
	if meta.Total != 1 || meta.Limit != 5 {
		t.Fatalf("meta = %s", env.Meta)
	}

	a.expect(http.MethodGet, "/api/documents/not-a-uuid", "lawyer", nil, http.StatusBadRequest)
	a.expect(http.MethodGet, "/api/documents/00000000-0000-0000-0000-000000000009", "lawyer", nil, http.StatusNotFound)
	a.expect(http.MethodPost, "/api/documents", "lawyer", map[string]interface{}{"type": "agreement"}, http.StatusBadRequest)
}

func TestPipelineOverHTTP(t *testing.T) {
	a := newAPI(t)

	var doc service.DocumentResponse
	decode(t, a.expect(http.MethodPost, "/api/documents", "lawyer", map[string]interface{}{"type": "agreement", "name": "Lease"}, http.StatusCreated).Data, &doc)

	var version struct {
		ID     string `json:"id"`
		SHA256 string `json:"sha256"`
	}
	content := "Điều 1.\n\nĐiều 2.\n\nĐiều 3."
	decode(t, a.expect(http.MethodPost, "/api/documents/"+doc.ID+"/versions", "lawyer", map[string]string{"content": content}, http.StatusCreated).Data, &version)
	vpath := "/api/versions/" + version.ID

	var segs []map[string]interface{}
	decode(t, a.expect(http.MethodGet, vpath+"/segments", "reviewer", nil, http.StatusOK).Data, &segs)
	if len(segs) != 3 {
		t.Fatalf("segments = %d", len(segs))
	}

	// gate closed, but still a 200 answer
	var gate service.GateResult
	decode(t, a.expect(http.MethodGet, vpath+"/gate", "reviewer", nil, http.StatusOK).Data, &gate)
	if gate.Passed || len(gate.Blocked) != 2 {
		t.Fatalf("gate = %+v", gate)
	}
	env := a.expect(http.MethodPost, vpath+"/lock", "lawyer", map[string]string{"status": "approved"}, http.StatusConflict)
	if !strings.Contains(string(env.Details), "blocked_scopes") {
		t.Fatalf("blocked lock should list scopes: %s", env.Details)
	}
	a.expect(http.MethodPost, vpath+"/export", "lawyer", nil, http.StatusConflict)

	var report service.BatchReport
	decode(t, a.expect(http.MethodPost, vpath+"/translations", "translator", map[string]string{"target_lang": "en"}, http.StatusOK).Data, &report)
	if report.Succeeded != 3 {
		t.Fatalf("report = %+v", report)
	}

	a.expect(http.MethodPost, vpath+"/approvals", "translator", map[string]string{"scope": "source", "decision": "approved"}, http.StatusForbidden)
	a.expect(http.MethodPost, vpath+"/approvals", "reviewer", map[string]string{"scope": "ko", "decision": "approved"}, http.StatusBadRequest)
	for _, scope := range []string{"source", "en"} {
		a.expect(http.MethodPost, vpath+"/approvals", "reviewer", map[string]string{"scope": scope, "decision": "approved"}, http.StatusCreated)
	}
	var st service.ScopeStatus
	decode(t, a.expect(http.MethodGet, vpath+"/approvals?scope=en", "lawyer", nil, http.StatusOK).Data, &st)
	if st.State != "approved" || st.Latest == nil || st.Latest.Role != "reviewer" {
		t.Fatalf("scope status = %+v", st)
	}

	var pkg service.PackageResult
	decode(t, a.expect(http.MethodPost, vpath+"/export", "lawyer", `{"target_langs":["en"]}`, http.StatusCreated).Data, &pkg)
	if pkg.Hash == "" || pkg.VerificationURL == "" {
		t.Fatalf("package = %+v", pkg)
	}
	a.expect(http.MethodPost, vpath+"/export", "lawyer", nil, http.StatusConflict)

	w, _ := a.do(http.MethodGet, vpath+"/package", "reviewer", nil)
	if w.Code != http.StatusOK || w.Header().Get("X-Package-Hash") != pkg.Hash || !strings.Contains(w.Body.String(), "## Translation (en)") {
		t.Fatalf("download = %d %v", w.Code, w.Header())
	}

	var sum service.VerificationSummary
	decode(t, a.expect(http.MethodGet, fmt.Sprintf("/api/verify?versionId=%s&hash=%s", version.ID, version.SHA256), "", nil, http.StatusOK).Data, &sum)
	if !sum.Valid || sum.Status != "exported" {
		t.Fatalf("verify = %+v", sum)
	}
	a.expect(http.MethodGet, "/api/verify?versionId=nope", "", nil, http.StatusBadRequest)

	var check IntegrityResponse
	decode(t, a.expect(http.MethodPost, vpath+"/verify-integrity", "reviewer", content, http.StatusOK).Data, &check)
	if !check.Valid {
		t.Fatal("integrity check failed on original content")
	}
	a.expect(http.MethodPost, vpath+"/verify-integrity", "reviewer", content+"!", http.StatusUnprocessableEntity)

	a.expect(http.MethodGet, "/api/audit-logs?version_id="+version.ID, "reviewer", nil, http.StatusForbidden)
	env = a.expect(http.MethodGet, "/api/audit-logs?version_id="+version.ID+"&limit=100", "admin", nil, http.StatusOK)
	var logs []service.AuditLogResponse
	decode(t, env.Data, &logs)
	if len(logs) == 0 || logs[0].VersionID != version.ID {
		t.Fatalf("audit logs = %+v", logs)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("version: %w", service.ErrNotFound), http.StatusNotFound},
		{service.ErrAlreadyExported, http.StatusConflict},
		{&service.BlockedError{}, http.StatusConflict},
		{service.ErrIntegrityMismatch, http.StatusUnprocessableEntity},
		{service.ErrInvalidTransition, http.StatusBadRequest},
		{service.ErrInvalidScope, http.StatusBadRequest},
		{service.ErrSegmentsExist, http.StatusBadRequest},
		{fmt.Errorf("%w: name", service.ErrValidation), http.StatusBadRequest},
		{service.ErrTranslationUnavailable, http.StatusServiceUnavailable},
		{service.ErrPersistenceFailure, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
