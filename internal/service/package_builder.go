package service

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"legaldocs/internal/model"

	"github.com/google/uuid"
)

// LanguageSection is the material for one translated section of a package.
type LanguageSection struct {
	Lang         string
	Translations []model.SegmentTranslation
}

type PackageInput struct {
	Document        model.Document
	Version         model.Version
	Content         []byte
	Segments        []model.Segment
	Languages       []LanguageSection
	Approvals       []model.Approval
	AuditTrail      []model.AuditLog
	VerificationURL string
	GeneratedAt     time.Time
}

// BuiltPackage is the assembled bundle plus which languages made it in.
type BuiltPackage struct {
	Bundle  []byte
	Usable  []string
	Missing []string
}

// VerificationURL is the public link printed (and QR-encoded) in a package.
func VerificationURL(baseURL string, versionID uuid.UUID, sha string) string {
	q := url.Values{}
	q.Set("versionId", versionID.String())
	q.Set("hash", sha)
	return strings.TrimRight(baseURL, "/") + "/api/verify?" + q.Encode()
}

// BuildPackage renders the export bundle as Markdown. The output depends only
// on its input, so the same input always hashes the same.
func BuildPackage(in PackageInput) (*BuiltPackage, error) {
	var b bytes.Buffer
	out := &BuiltPackage{}

	fmt.Fprintf(&b, "# %s\n\n", in.Document.Name)
	fmt.Fprintf(&b, "- Document ID: %s\n", in.Document.ID)
	fmt.Fprintf(&b, "- Type: %s\n", in.Document.Type)
	if in.Document.CaseRef != "" {
		fmt.Fprintf(&b, "- Case: %s\n", in.Document.CaseRef)
	}
	if in.Document.DocDate != nil {
		fmt.Fprintf(&b, "- Date: %s\n", in.Document.DocDate.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "- Version: %d (%s)\n", in.Version.VersionNo, in.Version.ID)
	fmt.Fprintf(&b, "- Content SHA-256: %s\n", in.Version.SHA256)
	fmt.Fprintf(&b, "- Source language: %s\n", in.Document.SourceLang)
	fmt.Fprintf(&b, "- Generated at: %s\n\n", in.GeneratedAt.UTC().Format(time.RFC3339))

	payload, err := model.DecodePayload(in.Document.Type, in.Document.Payload)
	if err != nil {
		return nil, err
	}
	if payload != nil && len(payload.Fields()) > 0 {
		b.WriteString("## Particulars\n\n")
		for _, f := range payload.Fields() {
			fmt.Fprintf(&b, "- %s: %s\n", f.Label, f.Value)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Source (%s)\n\n", in.Document.SourceLang)
	b.Write(in.Content)
	b.WriteString("\n\n")

	for _, sec := range in.Languages {
		bySegment := make(map[uuid.UUID]model.SegmentTranslation, len(sec.Translations))
		for _, t := range sec.Translations {
			bySegment[t.SegmentID] = t
		}

		fmt.Fprintf(&b, "## Translation (%s)\n\n", sec.Lang)
		usable := 0
		var body bytes.Buffer
		for _, seg := range in.Segments {
			t, ok := bySegment[seg.ID]
			switch {
			case !ok:
				fmt.Fprintf(&body, "[%d] (no translation)\n\n", seg.Seq)
			case t.Placeholder:
				fmt.Fprintf(&body, "[%d] %s\n\n", seg.Seq, t.TranslatedText)
			default:
				usable++
				fmt.Fprintf(&body, "[%d] %s\n\n", seg.Seq, t.TranslatedText)
			}
		}
		if usable == 0 {
			out.Missing = append(out.Missing, sec.Lang)
			b.WriteString("_Translation unavailable for this language._\n\n")
			continue
		}
		out.Usable = append(out.Usable, sec.Lang)
		if usable < len(in.Segments) {
			fmt.Fprintf(&b, "_%d of %d segments translated._\n\n", usable, len(in.Segments))
		}
		b.Write(body.Bytes())
	}

	b.WriteString("## Approvals\n\n")
	if len(in.Approvals) == 0 {
		b.WriteString("None recorded.\n")
	}
	for _, a := range in.Approvals {
		fmt.Fprintf(&b, "- %s | %s | %s by %s (%s)", a.CreatedAt.UTC().Format(time.RFC3339), a.Scope, a.Decision, a.ActorID, a.Role)
		if a.Comment != "" {
			fmt.Fprintf(&b, ": %s", a.Comment)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n## Audit trail\n\n")
	for _, l := range in.AuditTrail {
		actor := l.ActorID
		if actor == "" {
			actor = "system"
		}
		fmt.Fprintf(&b, "- %s | %s | %s %s | %s\n", l.CreatedAt.UTC().Format(time.RFC3339), l.Action, l.EntityType, l.EntityID, actor)
	}

	b.WriteString("\n## Verification\n\n")
	fmt.Fprintf(&b, "Scan the QR code or open: %s\n", in.VerificationURL)

	out.Bundle = b.Bytes()
	return out, nil
}
