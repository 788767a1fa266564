package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"legaldocs/internal/blobstore"
	"legaldocs/internal/model"
	"legaldocs/internal/repository"
	"legaldocs/internal/testutil"
	"legaldocs/internal/translator"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// recordingPublisher collects every event the notifier delivers.
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	failN  int
}

func (p *recordingPublisher) Publish(_ context.Context, msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failN > 0 {
		p.failN--
		return errors.New("hub down")
	}
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		return err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// faultyStore fails Put for keys with the given prefix.
type faultyStore struct {
	blobstore.Store
	failPrefix string
}

func (f *faultyStore) Put(ctx context.Context, key string, data []byte) error {
	if strings.HasPrefix(key, f.failPrefix) {
		return errors.New("bucket unavailable")
	}
	return f.Store.Put(ctx, key, data)
}

type testEnv struct {
	db        *gorm.DB
	tx        repository.TransactionManager
	blobs     blobstore.Store
	pub       *recordingPublisher
	notifier  *Notifier
	audit     AuditService
	documents DocumentService
	segments  SegmentService
	versions  VersionService
	approvals ApprovalService
	trans     TranslationService
	export    ExportService
	verify    VerifyService

	docRepo  repository.DocumentRepository
	verRepo  repository.VersionRepository
	segRepo  repository.SegmentRepository
	trRepo   repository.TranslationRepository
	apprRepo repository.ApprovalRepository
	pkgRepo  repository.PackageRepository
}

type envOption func(*envConfig)

type envConfig struct {
	provider translator.Translator
	timeout  time.Duration
	wrap     func(blobstore.Store) blobstore.Store
}

func withProvider(p translator.Translator) envOption {
	return func(c *envConfig) { c.provider = p }
}

func withTimeout(d time.Duration) envOption {
	return func(c *envConfig) { c.timeout = d }
}

func withBlobs(wrap func(blobstore.Store) blobstore.Store) envOption {
	return func(c *envConfig) { c.wrap = wrap }
}

// upperProvider "translates" by upper-casing, enough to tell output from input.
var upperProvider = translator.Func(func(_ context.Context, text, _, _ string) (string, error) {
	return strings.ToUpper(text), nil
})

func newEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := envConfig{provider: upperProvider, timeout: time.Second}
	for _, o := range opts {
		o(&cfg)
	}

	db := testutil.NewDB(t)
	local, err := blobstore.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	var blobs blobstore.Store = local
	if cfg.wrap != nil {
		blobs = cfg.wrap(local)
	}

	logger := zap.NewNop()
	pub := &recordingPublisher{}
	notifier := NewNotifier(pub, logger).WithRetry(3, 0)
	t.Cleanup(notifier.Wait)

	e := &testEnv{
		db:       db,
		blobs:    blobs,
		pub:      pub,
		notifier: notifier,
		docRepo:  repository.NewDocumentRepository(db),
		verRepo:  repository.NewVersionRepository(db),
		segRepo:  repository.NewSegmentRepository(db),
		trRepo:   repository.NewTranslationRepository(db),
		apprRepo: repository.NewApprovalRepository(db),
		pkgRepo:  repository.NewPackageRepository(db),
	}
	tx := repository.NewTransactionManager(db)
	e.tx = tx

	e.audit = NewAuditService(repository.NewAuditRepository(db))
	e.documents = NewDocumentService(e.docRepo, tx, e.audit, DocumentDefaults{SourceLang: "vi", RequiredLangs: []string{"en"}}, logger)
	e.segments = NewSegmentService(e.segRepo, e.verRepo, tx)
	e.approvals = NewApprovalService(ApprovalServiceDeps{
		Approvals: e.apprRepo, Versions: e.verRepo, Documents: e.docRepo, Translations: e.trRepo,
		Tx: tx, Audit: e.audit, Notifier: notifier, Logger: logger,
	})
	e.versions = NewVersionService(VersionServiceDeps{
		Documents: e.docRepo, Versions: e.verRepo, Packages: e.pkgRepo, Segments: e.segments,
		Tx: tx, Blobs: blobs, Audit: e.audit, Gate: e.approvals, Notifier: notifier, Logger: logger,
	})
	engine := translator.NewEngine(cfg.provider, translator.EngineConfig{
		Timeout:    cfg.timeout,
		Generative: map[translator.Pair]bool{{Source: "vi", Target: "en"}: true},
		Template:   map[translator.Pair]bool{{Source: "vi", Target: "fr"}: true},
	}, logger)
	e.trans = NewTranslationService(TranslationServiceDeps{
		Translations: e.trRepo, Segments: e.segRepo, Versions: e.verRepo, Documents: e.docRepo,
		Tx: tx, VersionSvc: e.versions, Engine: engine, Audit: e.audit, Notifier: notifier,
		Concurrency: 3, Logger: logger,
	})
	e.export = NewExportService(ExportServiceDeps{
		Versions: e.verRepo, Documents: e.docRepo, Segments: e.segRepo, Translations: e.trRepo,
		Packages: e.pkgRepo, Tx: tx, VersionSvc: e.versions, Approvals: e.approvals, Audit: e.audit,
		Blobs: blobs, Notifier: notifier, PublicBaseURL: "https://verify.example.com", Logger: logger,
	})
	e.verify = NewVerifyService(VerifyServiceDeps{
		Versions: e.verRepo, Documents: e.docRepo, Segments: e.segRepo, Translations: e.trRepo,
		Packages: e.pkgRepo, Approvals: e.approvals, Audit: e.audit,
	})
	return e
}

const threeParagraphs = "Điều 1. Các bên.\n\nĐiều 2. Hai bên đồng ý.\n\nĐiều 3. Hiệu lực."

func (e *testEnv) newDocument(t *testing.T, required ...string) uuid.UUID {
	t.Helper()
	if required == nil {
		required = []string{"en"}
	}
	res, err := e.documents.CreateDocument(context.Background(), CreateDocumentDTO{
		Type: model.DocTypeAgreement, Name: "Hợp đồng thuê", SourceLang: "vi", RequiredLangs: required,
	}, "lawyer-1")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	return uuid.MustParse(res.ID)
}

func (e *testEnv) newVersion(t *testing.T, docID uuid.UUID, content string) *model.Version {
	t.Helper()
	v, err := e.versions.CreateVersion(context.Background(), docID, content, "lawyer-1")
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	return v
}

func (e *testEnv) approve(t *testing.T, versionID uuid.UUID, scopes ...string) {
	t.Helper()
	for _, scope := range scopes {
		_, err := e.approvals.SubmitApproval(context.Background(), versionID, SubmitApprovalDTO{Scope: scope, Decision: "approved"}, "reviewer", "rev-1")
		if err != nil {
			t.Fatalf("SubmitApproval(%s): %v", scope, err)
		}
	}
}

func (e *testEnv) status(t *testing.T, versionID uuid.UUID) model.VersionStatus {
	t.Helper()
	v, err := e.verRepo.FindByID(context.Background(), versionID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	return v.Status
}
