package model

import (
	"testing"

	"gorm.io/datatypes"
)

func TestDecodePayload_ByDocumentType(t *testing.T) {
	raw := datatypes.JSON(`{"parties":[{"name":"Nguyen Van A","id_number":"0790123"},{"name":"ACME Ltd","role":"buyer"}],"effective_date":"2024-03-01"}`)

	p, err := DecodePayload(DocTypeAgreement, raw)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	agreement, ok := p.(AgreementPayload)
	if !ok {
		t.Fatalf("got %T, want AgreementPayload", p)
	}
	if len(agreement.Parties) != 2 || agreement.EffectiveDate != "2024-03-01" {
		t.Fatalf("unexpected payload %+v", agreement)
	}

	fields := p.Fields()
	if fields[0].Value != "Nguyen Van A (0790123)" || fields[1].Value != "ACME Ltd, buyer" {
		t.Fatalf("unexpected fields %+v", fields)
	}
}

func TestDecodePayload_EmptyAndGeneric(t *testing.T) {
	p, err := DecodePayload(DocTypeAgreement, nil)
	if err != nil || p != nil {
		t.Fatalf("empty column: got %v, %v", p, err)
	}

	p, err = DecodePayload("letter", datatypes.JSON(`{"values":[{"label":"ref","value":"L-1"}]}`))
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if p.Kind() != "generic" || p.Fields()[0].Value != "L-1" {
		t.Fatalf("unexpected generic payload %+v", p)
	}

	if _, err := DecodePayload(DocTypePowerOfAttorney, datatypes.JSON(`{"principal":`)); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}

func TestEncodePayload_RoundTripsThroughDecode(t *testing.T) {
	in := PowerOfAttorneyPayload{
		Principal: Party{Name: "Tran Thi B"},
		Agent:     Party{Name: "Le Van C", IDNumber: "A1234"},
		Scope:     "sale of property",
	}
	raw, err := EncodePayload(in)
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	out, err := DecodePayload(DocTypePowerOfAttorney, raw)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if out.(PowerOfAttorneyPayload) != in {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestStatusOrdering(t *testing.T) {
	order := []VersionStatus{VersionDraft, VersionPendingTranslation, VersionPendingApproval, VersionApproved, VersionExported}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Fatalf("%s does not rank after %s", order[i], order[i-1])
		}
	}
	if VersionStatus("archived").Valid() {
		t.Fatalf("unknown status reported valid")
	}
	if !VersionApproved.Frozen() || !VersionExported.Frozen() || VersionPendingApproval.Frozen() {
		t.Fatalf("unexpected Frozen results")
	}
}

func TestSplitLangs(t *testing.T) {
	got := SplitLangs(" EN, vi ,,en,zh ")
	want := []string{"en", "vi", "zh"}
	if len(got) != len(want) {
		t.Fatalf("SplitLangs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SplitLangs = %v, want %v", got, want)
		}
	}
	if JoinLangs([]string{"EN", "en", "vi"}) != "en,vi" {
		t.Fatalf("JoinLangs did not normalize")
	}
}
