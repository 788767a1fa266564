package service

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"legaldocs/internal/model"

	"github.com/google/uuid"
)

func builderInput() PackageInput {
	docID, verID := uuid.New(), uuid.New()
	segs := []model.Segment{
		{ID: uuid.New(), VersionID: verID, Seq: 1, SourceText: "Điều 1."},
		{ID: uuid.New(), VersionID: verID, Seq: 2, SourceText: "Điều 2."},
	}
	return PackageInput{
		Document: model.Document{ID: docID, Type: "memo", Name: "Memo", SourceLang: "vi",
			Payload: []byte(`{"values":[{"label":"court","value":"HCMC"}]}`)},
		Version:  model.Version{ID: verID, DocumentID: docID, VersionNo: 2, SHA256: "abc"},
		Content:  []byte("Điều 1.\n\nĐiều 2."),
		Segments: segs,
		Languages: []LanguageSection{
			{Lang: "en", Translations: []model.SegmentTranslation{
				{SegmentID: segs[0].ID, TranslatedText: "Article 1."},
				{SegmentID: segs[1].ID, TranslatedText: model.PlaceholderPrefix + "Điều 2.", Placeholder: true},
			}},
			{Lang: "ja", Translations: []model.SegmentTranslation{
				{SegmentID: segs[0].ID, TranslatedText: model.PlaceholderPrefix + "Điều 1.", Placeholder: true},
			}},
		},
		Approvals:       []model.Approval{{Scope: "source", Decision: model.DecisionApproved, ActorID: "r", Role: "reviewer", Comment: "ok"}},
		VerificationURL: VerificationURL("https://v.example.com/", verID, "abc"),
		GeneratedAt:     time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC),
	}
}

func TestBuildPackage(t *testing.T) {
	in := builderInput()
	out, err := BuildPackage(in)
	if err != nil {
		t.Fatalf("BuildPackage: %v", err)
	}
	if strings.Join(out.Usable, ",") != "en" || strings.Join(out.Missing, ",") != "ja" {
		t.Fatalf("usable = %v missing = %v", out.Usable, out.Missing)
	}

	doc := string(out.Bundle)
	for _, want := range []string{
		"# Memo",
		"- court: HCMC",
		"_1 of 2 segments translated._",
		"[1] Article 1.",
		"## Translation (ja)\n\n_Translation unavailable for this language._",
		"source | approved by r (reviewer): ok",
		"https://v.example.com/api/verify?hash=abc&versionId=" + in.Version.ID.String(),
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("bundle misses %q", want)
		}
	}

	again, _ := BuildPackage(in)
	if !bytes.Equal(out.Bundle, again.Bundle) {
		t.Fatal("same input produced different bundles")
	}
}
