package schema

import (
	"encoding/json"
	"testing"
)

func TestRecordCaseInsensitive(t *testing.T) {
	r := NewRecord()
	r.Set("Name", "Acme")

	if v, ok := r.Get("name"); !ok || v != "Acme" {
		t.Errorf("Get(name) = (%v, %v); want (Acme, true)", v, ok)
	}

	r.Set("NAME", "Globex")
	if v, _ := r.Get("Name"); v != "Globex" {
		t.Errorf("Get(Name) = %v after case-varied update; want Globex", v)
	}
	if r.Len() != 1 {
		t.Errorf("len = %d; want 1", r.Len())
	}
}

func TestRecordFieldOrder(t *testing.T) {
	s := &ObjectSchema{
		Name: "Account",
		Fields: []Field{
			{Name: "Name", Type: FieldTypeString},
			{Name: "Industry", Type: FieldTypePicklist},
			{Name: "Phone", Type: FieldTypePhone},
		},
	}

	r := RecordFromMap(map[string]any{
		"Zeta__c":  1,
		"Phone":    "5551234",
		"Name":     "Acme",
		"Alpha__c": 2,
	}, s)

	got := r.Fields()
	// schema order first, then extras sorted
	want := []string{"Name", "Phone", "Zeta__c", "Alpha__c"}
	if len(got) != len(want) {
		t.Fatalf("fields = %v; want %v", got, want)
	}

	// extras come after schema fields in sorted order
	if got[0] != "Name" || got[1] != "Phone" {
		t.Errorf("schema fields out of order: %v", got)
	}
	if got[2] != "Alpha__c" || got[3] != "Zeta__c" {
		t.Errorf("extra fields not sorted: %v", got)
	}
}

func TestRecordDelete(t *testing.T) {
	r := NewRecord()
	r.Set("A", 1)
	r.Set("B", 2)
	r.Delete("a")

	if _, ok := r.Get("A"); ok {
		t.Error("expected A deleted")
	}
	if r.Len() != 1 {
		t.Errorf("len = %d; want 1", r.Len())
	}
}

func TestRecordCloneIndependent(t *testing.T) {
	r := NewRecord()
	r.Set("Name", "Acme")

	c := r.Clone()
	c.Set("Name", "Globex")
	c.Set("Extra", true)

	if v, _ := r.Get("Name"); v != "Acme" {
		t.Errorf("source mutated by clone: %v", v)
	}
	if r.Len() != 1 {
		t.Errorf("source len = %d; want 1", r.Len())
	}
}

func TestRecordJSONRoundTrip(t *testing.T) {
	r := NewRecord()
	r.Set("Name", "Acme")
	r.Set("Amount", 42.5)

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if v, _ := back.Get("Name"); v != "Acme" {
		t.Errorf("Name = %v; want Acme", v)
	}
	if v, _ := back.Get("Amount"); v != 42.5 {
		t.Errorf("Amount = %v; want 42.5", v)
	}
}

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		in   string
		want FieldType
	}{
		{"string", FieldTypeString},
		{"Currency", FieldTypeCurrency},
		{"PICKLIST", FieldTypePicklist},
		{"textarea", FieldTypeTextArea},
		{"somethingNew", FieldTypeUnknown},
		{"", FieldTypeUnknown},
	}
	for _, tt := range tests {
		if got := ParseFieldType(tt.in); got != tt.want {
			t.Errorf("ParseFieldType(%q) = %s; want %s", tt.in, got, tt.want)
		}
	}
}

func TestFieldByName(t *testing.T) {
	s := &ObjectSchema{
		Fields: []Field{
			{Name: "Name"},
			{Name: "AnnualRevenue"},
		},
	}

	if f := s.FieldByName("annualrevenue"); f == nil || f.Name != "AnnualRevenue" {
		t.Errorf("FieldByName(annualrevenue) = %v; want AnnualRevenue", f)
	}
	if f := s.FieldByName("Missing"); f != nil {
		t.Errorf("FieldByName(Missing) = %v; want nil", f)
	}
}

func TestActiveRules(t *testing.T) {
	s := &ObjectSchema{
		ValidationRules: []ValidationRule{
			{ID: "a", Active: true},
			{ID: "b", Active: false},
			{ID: "c", Active: true},
		},
	}

	active := s.ActiveRules()
	if len(active) != 2 {
		t.Fatalf("got %d active rules; want 2", len(active))
	}
	for _, r := range active {
		if !r.Active {
			t.Errorf("inactive rule %s returned", r.ID)
		}
	}
}
