package domain

import "testing"

func leaseFields() []FieldDefinition {
	return []FieldDefinition{
		{Key: "landlord", Label: "Landlord", Type: FieldText, Required: true},
		{Key: "rent", Label: "Rent", Type: FieldNumber},
		{Key: "renewal_date", Label: "Renewal", Type: FieldDate},
		{Key: "term", Label: "Term", Type: FieldSelect, Options: []string{"monthly", "yearly"}},
		{Key: "auto_renew", Label: "Auto renew", Type: FieldCheckbox},
	}
}

func TestValidateExtraData(t *testing.T) {
	defs := leaseFields()

	tests := []struct {
		name    string
		data    map[string]any
		wantErr bool
	}{
		{"all valid", map[string]any{
			"landlord": "ACME", "rent": 1200.0, "renewal_date": "2026-03-01",
			"term": "yearly", "auto_renew": true,
		}, false},
		{"only required", map[string]any{"landlord": "ACME"}, false},
		{"nil data missing required", nil, true},
		{"missing required", map[string]any{"rent": 1.0}, true},
		{"required explicitly null", map[string]any{"landlord": nil}, true},
		{"unknown key", map[string]any{"landlord": "ACME", "pets": "no"}, true},
		{"text wrong type", map[string]any{"landlord": 12.0}, true},
		{"number as string", map[string]any{"landlord": "A", "rent": "1200"}, true},
		{"bad date", map[string]any{"landlord": "A", "renewal_date": "03/01/2026"}, true},
		{"select not an option", map[string]any{"landlord": "A", "term": "weekly"}, true},
		{"checkbox wrong type", map[string]any{"landlord": "A", "auto_renew": "yes"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateExtraData(defs, tc.data)
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateExtraDataNoSchema(t *testing.T) {
	// Categories without field definitions accept no extra data at all.
	if err := ValidateExtraData(nil, map[string]any{"anything": 1.0}); err == nil {
		t.Fatal("expected undeclared key to be rejected")
	}
	if err := ValidateExtraData(nil, nil); err != nil {
		t.Fatalf("empty data must pass: %v", err)
	}
}

func TestValidateFieldDefinitions(t *testing.T) {
	if err := ValidateFieldDefinitions(leaseFields()); err != nil {
		t.Fatalf("valid schema rejected: %v", err)
	}
	bad := [][]FieldDefinition{
		{{Key: "", Type: FieldText}},
		{{Key: "a", Type: FieldText}, {Key: "a", Type: FieldDate}},
		{{Key: "a", Type: "blob"}},
		{{Key: "a", Type: FieldSelect}},
	}
	for i, defs := range bad {
		if err := ValidateFieldDefinitions(defs); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestValidDate(t *testing.T) {
	if !ValidDate("2025-01-31") {
		t.Fatal("ISO date rejected")
	}
	for _, s := range []string{"", "2025-13-01", "31/01/2025", "2025-1-1x"} {
		if ValidDate(s) {
			t.Fatalf("%q accepted", s)
		}
	}
}
