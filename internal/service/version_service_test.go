package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"legaldocs/internal/blobstore"
	"legaldocs/internal/model"
	"legaldocs/internal/repository"
	"legaldocs/pkg/contenthash"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestCreateVersion_StoresContentSegmentsAndPointer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	docID := e.newDocument(t)

	v := e.newVersion(t, docID, threeParagraphs)

	if v.VersionNo != 1 || v.Status != model.VersionDraft {
		t.Fatalf("version = %+v", v)
	}
	if v.SHA256 != contenthash.SumString(threeParagraphs) {
		t.Fatalf("sha256 = %s", v.SHA256)
	}
	if v.StoragePath != blobstore.VersionPath(docID.String(), v.SHA256) {
		t.Fatalf("storage path = %s", v.StoragePath)
	}
	stored, err := e.blobs.Get(ctx, v.StoragePath)
	if err != nil || string(stored) != threeParagraphs {
		t.Fatalf("stored content = %q, %v", stored, err)
	}

	segs, err := e.segments.ListSegments(ctx, v.ID)
	if err != nil || len(segs) != 3 {
		t.Fatalf("segments = %d, %v", len(segs), err)
	}
	if segs[1].Seq != 2 || segs[1].SourceText != "Điều 2. Hai bên đồng ý." {
		t.Fatalf("segment 2 = %+v", segs[1])
	}

	doc, err := e.documents.GetDocument(ctx, docID.String())
	if err != nil || doc.CurrentVersionID == nil || *doc.CurrentVersionID != v.ID.String() || doc.CurrentVersionNo != 1 {
		t.Fatalf("document current version = %+v, %v", doc, err)
	}

	trail, _ := e.audit.Trail(ctx, v.ID)
	if len(trail) != 1 || trail[0].Action != model.ActionCreateVersion {
		t.Fatalf("audit trail = %+v", trail)
	}

	e.notifier.Wait()
	if got := e.pub.types(); len(got) != 1 || got[0] != EventVersionCreated {
		t.Fatalf("events = %v", got)
	}
}

// racingVersions fails the first failN inserts with a duplicate key, as a
// concurrent writer taking the same version number would.
type racingVersions struct {
	repository.VersionRepository
	failN int
	calls int
}

func (r *racingVersions) Create(ctx context.Context, v *model.Version) error {
	r.calls++
	if r.calls <= r.failN {
		return fmt.Errorf("insert version: %w", gorm.ErrDuplicatedKey)
	}
	return r.VersionRepository.Create(ctx, v)
}

func TestCreateVersion_RetriesVersionNumberConflict(t *testing.T) {
	tests := []struct {
		name    string
		failN   int
		wantErr error
		calls   int
	}{
		{"one conflict", 1, nil, 2},
		{"conflict on every attempt", createVersionAttempts, ErrPersistenceFailure, createVersionAttempts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			docID := e.newDocument(t)
			repo := &racingVersions{VersionRepository: e.verRepo, failN: tt.failN}
			svc := NewVersionService(VersionServiceDeps{
				Documents: e.docRepo, Versions: repo, Packages: e.pkgRepo, Segments: e.segments,
				Tx: e.tx, Blobs: e.blobs, Audit: e.audit, Gate: e.approvals, Notifier: e.notifier, Logger: zap.NewNop(),
			})

			v, err := svc.CreateVersion(context.Background(), docID, threeParagraphs, "lawyer-1")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if repo.calls != tt.calls {
				t.Fatalf("insert attempts = %d, want %d", repo.calls, tt.calls)
			}

			versions, _ := e.verRepo.ListByDocument(context.Background(), docID)
			var segments int64
			e.db.Model(&model.Segment{}).Count(&segments)
			if tt.wantErr != nil {
				if len(versions) != 0 || segments != 0 {
					t.Fatalf("failed create left %d versions, %d segments", len(versions), segments)
				}
				return
			}
			if v.VersionNo != 1 || len(versions) != 1 || segments != 3 {
				t.Fatalf("version_no = %d, versions = %d, segments = %d", v.VersionNo, len(versions), segments)
			}
		})
	}
}

func TestCreateVersion_MonotonicUnderConcurrency(t *testing.T) {
	e := newEnv(t)
	docID := e.newDocument(t)

	const n = 8
	var wg sync.WaitGroup
	nos := make([]int, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := e.versions.CreateVersion(context.Background(), docID, fmt.Sprintf("revision %d", i), "lawyer-1")
			errs[i] = err
			if err == nil {
				nos[i] = v.VersionNo
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	sort.Ints(nos)
	for i, no := range nos {
		if no != i+1 {
			t.Fatalf("version numbers = %v, want 1..%d without gaps", nos, n)
		}
	}

	versions, err := e.versions.ListVersions(context.Background(), docID)
	if err != nil || len(versions) != n || versions[0].VersionNo != n {
		t.Fatalf("ListVersions = %d, %v", len(versions), err)
	}
	doc, _ := e.docRepo.FindByID(context.Background(), docID)
	if doc.CurrentVersion == nil || doc.CurrentVersion.VersionNo != n {
		t.Fatalf("current version should be the highest, got %+v", doc.CurrentVersion)
	}
}

func TestCreateVersion_UnknownDocument(t *testing.T) {
	e := newEnv(t)
	if _, err := e.versions.CreateVersion(context.Background(), uuid.New(), "x", "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateVersion_BlobFailure(t *testing.T) {
	e := newEnv(t, withBlobs(func(s blobstore.Store) blobstore.Store {
		return &faultyStore{Store: s, failPrefix: "versions/"}
	}))
	docID := e.newDocument(t)
	if _, err := e.versions.CreateVersion(context.Background(), docID, "x", "a"); !errors.Is(err, ErrPersistenceFailure) {
		t.Fatalf("err = %v, want ErrPersistenceFailure", err)
	}
	versions, _ := e.versions.ListVersions(context.Background(), docID)
	if len(versions) != 0 {
		t.Fatalf("no version may be recorded without stored content, got %d", len(versions))
	}
}

func TestCreateVersionSegments_WriteOnce(t *testing.T) {
	e := newEnv(t)
	v := e.newVersion(t, e.newDocument(t), "a")
	if _, err := e.segments.CreateVersionSegments(context.Background(), v.ID, "b\n\nc"); !errors.Is(err, ErrSegmentsExist) {
		t.Fatalf("err = %v, want ErrSegmentsExist", err)
	}
}

func TestCreateVersion_EmptyContentHasOneSegment(t *testing.T) {
	e := newEnv(t)
	v := e.newVersion(t, e.newDocument(t), "")
	segs, _ := e.segments.ListSegments(context.Background(), v.ID)
	if len(segs) != 1 || segs[0].SourceText != "" || segs[0].Seq != 1 {
		t.Fatalf("segments = %+v", segs)
	}
}

func TestLockVersion_Rules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.newVersion(t, e.newDocument(t), threeParagraphs)

	if _, err := e.versions.LockVersion(ctx, v.ID, model.VersionPendingApproval, "a"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("non-lock target: %v", err)
	}

	_, err := e.versions.LockVersion(ctx, v.ID, model.VersionApproved, "a")
	var blocked *BlockedError
	if !errors.Is(err, ErrApprovalBlocked) || !errors.As(err, &blocked) || len(blocked.Scopes) != 2 {
		t.Fatalf("lock without approvals: %v", err)
	}

	if _, err := e.versions.LockVersion(ctx, v.ID, model.VersionExported, "a"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("export lock without package: %v", err)
	}

	if _, err := e.trans.TranslateVersion(ctx, v.ID, TranslateVersionDTO{TargetLang: "en"}, "tr-1"); err != nil {
		t.Fatalf("TranslateVersion: %v", err)
	}
	e.approve(t, v.ID, model.ScopeSource, "en")
	locked, err := e.versions.LockVersion(ctx, v.ID, model.VersionApproved, "a")
	if err != nil || locked.Status != model.VersionApproved {
		t.Fatalf("lock approved: %+v, %v", locked, err)
	}
	if _, err := e.versions.LockVersion(ctx, v.ID, model.VersionApproved, "a"); err != nil {
		t.Fatalf("relocking at the same status is a no-op: %v", err)
	}
	if err := e.versions.AdvanceVersion(ctx, v.ID, model.VersionPendingApproval, "a"); err != nil {
		t.Fatalf("advance behind current status must be a no-op: %v", err)
	}
	if e.status(t, v.ID) != model.VersionApproved {
		t.Fatal("status moved backward")
	}
}

func TestLockVersion_ExportedIsTerminal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.newVersion(t, e.newDocument(t), threeParagraphs)
	if _, err := e.trans.TranslateVersion(ctx, v.ID, TranslateVersionDTO{TargetLang: "en"}, "tr-1"); err != nil {
		t.Fatalf("TranslateVersion: %v", err)
	}
	e.approve(t, v.ID, model.ScopeSource, "en")
	if _, err := e.export.GeneratePackage(ctx, v.ID, nil, "lawyer-1"); err != nil {
		t.Fatalf("GeneratePackage: %v", err)
	}

	for _, target := range []model.VersionStatus{model.VersionApproved, model.VersionExported} {
		if _, err := e.versions.LockVersion(ctx, v.ID, target, "a"); !errors.Is(err, ErrAlreadyExported) {
			t.Fatalf("lock %s after export: %v", target, err)
		}
	}
}

func TestVerifyIntegrity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.newVersion(t, e.newDocument(t), threeParagraphs)

	ok, err := e.versions.VerifyIntegrity(ctx, v.ID, []byte(threeParagraphs))
	if !ok || err != nil {
		t.Fatalf("matching content: %v, %v", ok, err)
	}
	ok, err = e.versions.VerifyIntegrity(ctx, v.ID, []byte(threeParagraphs+" "))
	if ok || !errors.Is(err, ErrIntegrityMismatch) {
		t.Fatalf("tampered content: %v, %v", ok, err)
	}
	trail, _ := e.audit.Trail(ctx, v.ID)
	if trail[len(trail)-1].Action != model.ActionIntegrityMismatch {
		t.Fatalf("mismatch should be audited, last action %s", trail[len(trail)-1].Action)
	}
	if _, err := e.versions.VerifyIntegrity(ctx, uuid.New(), nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown version: %v", err)
	}
}
