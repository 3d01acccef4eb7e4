package airport

import "testing"

func TestLoadBundledTable(t *testing.T) {
	table, err := LoadBundledTable()
	if err != nil {
		t.Fatalf("LoadBundledTable: %v", err)
	}
	if len(table) < 10 {
		t.Fatalf("bundled table has %d airports, expected the hub list", len(table))
	}

	r, ok := table.Get("EGLL")
	if !ok {
		t.Fatal("EGLL missing from bundled table")
	}
	if r.Source != SourceStatic || r.Name == "" || r.City != "London" {
		t.Errorf("unexpected EGLL record %+v", r)
	}
	if r.Lat < 51 || r.Lat > 52 || r.Lon > 0 || r.Lon < -1 {
		t.Errorf("EGLL coordinate %v,%v out of expected box", r.Lat, r.Lon)
	}

	for code, r := range table {
		if code != r.ICAO {
			t.Errorf("key %q holds record %q", code, r.ICAO)
		}
	}
}

func TestMapTable(t *testing.T) {
	table := NewMapTable(
		Record{ICAO: "ksna", Name: "Old"},
		Record{ICAO: "KSNA", Name: "John Wayne Airport"},
	)
	r, ok := table.Get("KSNA")
	if !ok || r.Name != "John Wayne Airport" || r.Source != SourceStatic {
		t.Errorf("Get(KSNA) = %+v, %v", r, ok)
	}
	if _, ok := table.Get("ksna"); ok {
		t.Error("Get expects normalized codes")
	}
}
