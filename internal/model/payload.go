package model

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// Document types with a dedicated structured payload. Any other type uses GenericPayload.
const (
	DocTypeAgreement       = "agreement"
	DocTypePowerOfAttorney = "power_of_attorney"
)

// Payload is the structured data of a document. Its fields (names, IDs,
// dates) are re-rendered per locale and never sent through generative translation.
type Payload interface {
	Kind() string
	// Fields flattens the payload into ordered label/value pairs for rendering.
	Fields() []Field
}

type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Party struct {
	Name     string `json:"name"`
	IDNumber string `json:"id_number,omitempty"`
	Role     string `json:"role,omitempty"`
	Address  string `json:"address,omitempty"`
}

type AgreementPayload struct {
	Parties       []Party `json:"parties"`
	EffectiveDate string  `json:"effective_date,omitempty"`
	GoverningLaw  string  `json:"governing_law,omitempty"`
}

func (AgreementPayload) Kind() string { return DocTypeAgreement }

func (p AgreementPayload) Fields() []Field {
	fields := make([]Field, 0, len(p.Parties)+2)
	for i, party := range p.Parties {
		fields = append(fields, Field{Label: fmt.Sprintf("party_%d", i+1), Value: party.describe()})
	}
	if p.EffectiveDate != "" {
		fields = append(fields, Field{Label: "effective_date", Value: p.EffectiveDate})
	}
	if p.GoverningLaw != "" {
		fields = append(fields, Field{Label: "governing_law", Value: p.GoverningLaw})
	}
	return fields
}

type PowerOfAttorneyPayload struct {
	Principal  Party  `json:"principal"`
	Agent      Party  `json:"agent"`
	Scope      string `json:"scope,omitempty"`
	ValidUntil string `json:"valid_until,omitempty"`
}

func (PowerOfAttorneyPayload) Kind() string { return DocTypePowerOfAttorney }

func (p PowerOfAttorneyPayload) Fields() []Field {
	fields := []Field{
		{Label: "principal", Value: p.Principal.describe()},
		{Label: "agent", Value: p.Agent.describe()},
	}
	if p.Scope != "" {
		fields = append(fields, Field{Label: "scope", Value: p.Scope})
	}
	if p.ValidUntil != "" {
		fields = append(fields, Field{Label: "valid_until", Value: p.ValidUntil})
	}
	return fields
}

// GenericPayload keeps arbitrary label/value pairs for document types without a schema.
type GenericPayload struct {
	Values []Field `json:"values"`
}

func (GenericPayload) Kind() string { return "generic" }

func (p GenericPayload) Fields() []Field { return p.Values }

func (p Party) describe() string {
	s := p.Name
	if p.IDNumber != "" {
		s += " (" + p.IDNumber + ")"
	}
	if p.Role != "" {
		s += ", " + p.Role
	}
	return s
}

// DecodePayload converts the raw JSON column into the payload type of docType.
// An empty column decodes to nil.
func DecodePayload(docType string, raw datatypes.JSON) (Payload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch docType {
	case DocTypeAgreement:
		var p AgreementPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode agreement payload: %w", err)
		}
		return p, nil
	case DocTypePowerOfAttorney:
		var p PowerOfAttorneyPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode power of attorney payload: %w", err)
		}
		return p, nil
	default:
		var p GenericPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode generic payload: %w", err)
		}
		return p, nil
	}
}

// EncodePayload serializes p for the JSON column.
func EncodePayload(p Payload) (datatypes.JSON, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return datatypes.JSON(b), nil
}
