package system

import (
	"encoding/json"
	"testing"
)

func TestSame_BothIDs(t *testing.T) {
	a := Record{Name: "Sol", ID64: 10477373803}
	b := Record{Name: "SOL renamed", ID64: 10477373803}
	if !Same(a, b) {
		t.Error("records with equal id64 should be the same system")
	}
}

func TestSame_IDMismatchWinsOverName(t *testing.T) {
	a := Record{Name: "Sol", ID64: 1}
	b := Record{Name: "Sol", ID64: 2}
	if Same(a, b) {
		t.Error("differing id64 should not match even with equal names")
	}
}

func TestSame_NameFallback(t *testing.T) {
	a := Record{Name: "Barnard's Star"}
	b := Record{Name: "Barnard's Star", ID64: 42}
	if !Same(a, b) {
		t.Error("missing id64 on one side should fall back to name equality")
	}
}

func TestMatches_ByID(t *testing.T) {
	r := Record{Name: "Wolf 359", ID64: 7}
	if !r.Matches("completely different", 7) {
		t.Error("id64 match alone should be enough")
	}
	if r.Matches("other", 8) {
		t.Error("neither key matches")
	}
}

func TestSortByDistance_Ascending(t *testing.T) {
	recs := []Record{
		{Name: "C", Distance: 60},
		{Name: "A", Distance: 10},
		{Name: "B", Distance: 5},
	}
	SortByDistance(recs)
	if recs[0].Name != "B" || recs[1].Name != "A" || recs[2].Name != "C" {
		t.Errorf("order = %s,%s,%s, want B,A,C", recs[0].Name, recs[1].Name, recs[2].Name)
	}
}

func TestSortByDistance_NameTiebreak(t *testing.T) {
	recs := []Record{
		{Name: "Zeta", Distance: 5},
		{Name: "Alpha", Distance: 5},
	}
	SortByDistance(recs)
	if recs[0].Name != "Alpha" {
		t.Errorf("equal distances should order by name, got %s first", recs[0].Name)
	}
}

func TestDedup_ByID(t *testing.T) {
	recs := []Record{
		{Name: "Sol", ID64: 1},
		{Name: "Sol (dup)", ID64: 1},
	}
	if got := Dedup(recs); len(got) != 1 || got[0].Name != "Sol" {
		t.Errorf("Dedup = %+v, want single Sol", got)
	}
}

func TestDedup_ByName(t *testing.T) {
	recs := []Record{
		{Name: "Sol"},
		{Name: "Sol"},
		{Name: "Alpha Centauri"},
	}
	if got := Dedup(recs); len(got) != 2 {
		t.Errorf("Dedup kept %d records, want 2", len(got))
	}
}

func TestDedup_Idempotent(t *testing.T) {
	recs := []Record{
		{Name: "Sol", ID64: 1},
		{Name: "Sol"},
		{Name: "Proxima", ID64: 2},
	}
	once := Dedup(append([]Record(nil), recs...))
	twice := Dedup(append([]Record(nil), once...))
	if len(once) != len(twice) {
		t.Errorf("second Dedup changed length: %d -> %d", len(once), len(twice))
	}
}

func TestRecord_JSONShape(t *testing.T) {
	r := Record{Name: "Sol", ID64: 10477373803, X: 0, Y: 0, Z: 0, Distance: 0}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Record
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back != r {
		t.Errorf("round trip = %+v, want %+v", back, r)
	}
}

func TestRecord_OmitsZeroID(t *testing.T) {
	b, _ := json.Marshal(Record{Name: "X"})
	if string(b) == "" || jsonHas(b, "id64") {
		t.Errorf("zero id64 should be omitted, got %s", b)
	}
}

func jsonHas(b []byte, key string) bool {
	var m map[string]any
	json.Unmarshal(b, &m)
	_, ok := m[key]
	return ok
}
