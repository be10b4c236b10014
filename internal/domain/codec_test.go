package domain

import (
	"reflect"
	"sort"
	"testing"

	"gorm.io/datatypes"
)

func TestDecodeVectorRejectsBadJSON(t *testing.T) {
	if _, err := DecodeVector(datatypes.JSON(`{"not":"a vector"}`)); err == nil {
		t.Fatalf("decode of non-array embedding: want error, got nil")
	}
	got, err := DecodeVector(nil)
	if err != nil {
		t.Fatalf("decode of empty column: %v", err)
	}
	if got != nil {
		t.Fatalf("empty column: want=nil got=%v", got)
	}
}

func TestEncodeVectorEmptyStoresNull(t *testing.T) {
	raw, err := EncodeVector(nil)
	if err != nil {
		t.Fatalf("encode nil: %v", err)
	}
	if raw != nil {
		t.Fatalf("encode nil: want=nil got=%s", raw)
	}
}

func TestDecodeAttrDocNormalizesScalars(t *testing.T) {
	raw := datatypes.JSON(`{
		"material": ["wood", "glue"],
		"finish": "matte",
		"coats": 2,
		"food_safe": true,
		"empty": []
	}`)
	doc, err := DecodeAttrDoc(raw)
	if err != nil {
		t.Fatalf("decode attr doc: %v", err)
	}
	want := map[string][]string{
		"material":  {"wood", "glue"},
		"finish":    {"matte"},
		"coats":     {"2"},
		"food_safe": {"true"},
	}
	if !reflect.DeepEqual(doc, want) {
		t.Fatalf("attr doc: want=%v got=%v", want, doc)
	}
}

func TestRecipeAttributeDocMergesRequirementShapes(t *testing.T) {
	r := &Recipe{
		RequiredMaterials: datatypes.JSON(`["oak plank", "wood glue"]`),
		RequiredTools:     datatypes.JSON(`{"tool": ["clamp"], "power_tool": "drill"}`),
	}
	doc, err := r.AttributeDoc()
	if err != nil {
		t.Fatalf("attribute doc: %v", err)
	}
	sort.Strings(doc["material"])
	want := map[string][]string{
		"material":   {"oak plank", "wood glue"},
		"tool":       {"clamp"},
		"power_tool": {"drill"},
	}
	if !reflect.DeepEqual(doc, want) {
		t.Fatalf("merged doc: want=%v got=%v", want, doc)
	}
}

func TestRecipeAttributeDocRejectsScalarColumn(t *testing.T) {
	r := &Recipe{RequiredMaterials: datatypes.JSON(`"just a string"`)}
	if _, err := r.AttributeDoc(); err == nil {
		t.Fatalf("scalar requirements column: want error, got nil")
	}
}
