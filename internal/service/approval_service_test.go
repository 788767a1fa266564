package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"legaldocs/internal/model"

	"github.com/google/uuid"
)

func TestScopeState_LatestDecisionWins(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.newVersion(t, e.newDocument(t), "a")

	st, err := e.approvals.GetApprovalStatus(ctx, v.ID, "")
	if err != nil || st.Scope != model.ScopeSource || st.State != model.ScopePending || !st.Required {
		t.Fatalf("no decisions: %+v, %v", st, err)
	}

	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := []model.Approval{
		{VersionID: v.ID, Scope: model.ScopeSource, Role: "reviewer", ActorID: "a", Decision: model.DecisionApproved, CreatedAt: t1},
		{VersionID: v.ID, Scope: model.ScopeSource, Role: "reviewer", ActorID: "b", Decision: model.DecisionRejected, CreatedAt: t1.Add(time.Hour)},
	}
	for i := range rows {
		if err := e.apprRepo.Create(ctx, &rows[i]); err != nil {
			t.Fatal(err)
		}
	}

	st, err = e.approvals.GetApprovalStatus(ctx, v.ID, model.ScopeSource)
	if err != nil {
		t.Fatal(err)
	}
	if st.State != model.ScopeRejected || len(st.History) != 2 || st.Latest.ActorID != "b" {
		t.Fatalf("status = %+v", st)
	}

	e.approve(t, v.ID, model.ScopeSource)
	st, _ = e.approvals.GetApprovalStatus(ctx, v.ID, model.ScopeSource)
	if st.State != model.ScopeApproved || len(st.History) != 3 {
		t.Fatalf("re-approval should win: %+v", st)
	}
}

func TestScopeState_StaleAfterTranslationChange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.newVersion(t, e.newDocument(t), "a")
	segs, _ := e.segments.ListSegments(ctx, v.ID)

	if _, err := e.trans.SaveSegmentTranslation(ctx, segs[0].ID, "en", SaveTranslationDTO{Text: "A"}, "tr"); err != nil {
		t.Fatal(err)
	}
	e.approve(t, v.ID, model.ScopeSource, "en")
	gate, err := e.approvals.CheckGate(ctx, v.ID)
	if err != nil || !gate.Passed {
		t.Fatalf("gate: %+v, %v", gate, err)
	}

	time.Sleep(5 * time.Millisecond)
	if _, err := e.trans.SaveSegmentTranslation(ctx, segs[0].ID, "en", SaveTranslationDTO{Text: "A, amended"}, "tr"); err != nil {
		t.Fatal(err)
	}

	st, _ := e.approvals.GetApprovalStatus(ctx, v.ID, "en")
	if st.State != model.ScopePending || !st.Stale {
		t.Fatalf("approval should be stale: %+v", st)
	}
	gate, err = e.approvals.CheckGate(ctx, v.ID)
	var blocked *BlockedError
	if !errors.As(err, &blocked) || gate.Passed {
		t.Fatalf("gate should block: %+v, %v", gate, err)
	}
	if len(blocked.Scopes) != 1 || blocked.Scopes[0].Scope != "en" {
		t.Fatalf("blocked = %+v", blocked.Scopes)
	}
}

func TestReviewDoesNotStaleApproval(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.newVersion(t, e.newDocument(t), "a")
	segs, _ := e.segments.ListSegments(ctx, v.ID)
	tr, _ := e.trans.SaveSegmentTranslation(ctx, segs[0].ID, "en", SaveTranslationDTO{Text: "A"}, "tr")
	e.approve(t, v.ID, "en")

	time.Sleep(5 * time.Millisecond)
	if _, err := e.trans.ReviewTranslation(ctx, tr.ID, model.TranslationReviewed, "rev"); err != nil {
		t.Fatal(err)
	}
	st, _ := e.approvals.GetApprovalStatus(ctx, v.ID, "en")
	if st.State != model.ScopeApproved {
		t.Fatalf("status review is not a content change: %+v", st)
	}
}

func TestSubmitApproval_Scopes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.newVersion(t, e.newDocument(t), "a")
	segs, _ := e.segments.ListSegments(ctx, v.ID)
	if _, err := e.trans.SaveSegmentTranslation(ctx, segs[0].ID, "ja", SaveTranslationDTO{Text: "エー"}, "tr"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		scope    string
		decision string
		role     string
		wantErr  error
	}{
		{"source", "source", "approved", "reviewer", nil},
		{"required language", "EN", "rejected", "reviewer", nil},
		{"translated optional language", "ja", "approved", "reviewer", nil},
		{"source language code", "vi", "approved", "reviewer", ErrInvalidScope},
		{"unrelated language", "ko", "approved", "reviewer", ErrInvalidScope},
		{"empty scope", "", "approved", "reviewer", ErrInvalidScope},
		{"bad decision", "source", "maybe", "reviewer", ErrValidation},
		{"missing role", "source", "approved", "", ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := e.approvals.SubmitApproval(ctx, v.ID, SubmitApprovalDTO{Scope: tt.scope, Decision: tt.decision}, tt.role, "actor")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if a.Scope != model.NormalizeLang(tt.scope) {
				t.Fatalf("scope = %q", a.Scope)
			}
		})
	}

	if _, err := e.approvals.SubmitApproval(ctx, uuid.New(), SubmitApprovalDTO{Scope: "source", Decision: "approved"}, "reviewer", "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown version: %v", err)
	}

	all, _ := e.approvals.ListApprovals(ctx, v.ID)
	if len(all) != 3 {
		t.Fatalf("approvals = %d, want 3", len(all))
	}
	st, _ := e.approvals.GetApprovalStatus(ctx, v.ID, "ja")
	if st.Required {
		t.Fatal("ja is not a required language")
	}
}
