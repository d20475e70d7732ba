package legal

import "testing"

func TestParse_FullDescription(t *testing.T) {
	ld := Parse("ST AUGUSTINE HIGHLANDS\nBLK N/6757\nLT 8")

	if ld.Subdivision != "ST AUGUSTINE HIGHLANDS" {
		t.Errorf("subdivision: got %q", ld.Subdivision)
	}
	if ld.Block != "N" {
		t.Errorf("block: got %q", ld.Block)
	}
	if ld.CityBlock != "6757" {
		t.Errorf("city block: got %q", ld.CityBlock)
	}
	if ld.Lot1 != "8" {
		t.Errorf("lot1: got %q", ld.Lot1)
	}
	if ld.Lot2 != "" {
		t.Errorf("lot2: expected empty, got %q", ld.Lot2)
	}
	if !ld.HasLotBlock() {
		t.Error("expected HasLotBlock")
	}
}

func TestParse_SpelledOutTokens(t *testing.T) {
	ld := Parse("OAK FOREST SEC 2\nBLOCK 12\nLOTS 5 & 6")

	// No literal "BLK" occurrence, so subdivision falls back to the first
	// line, which carries no block token.
	if ld.Subdivision != "OAK FOREST SEC 2" {
		t.Errorf("subdivision: got %q", ld.Subdivision)
	}
	if ld.Block != "12" {
		t.Errorf("block: got %q", ld.Block)
	}
	if ld.CityBlock != "" {
		t.Errorf("city block: expected empty, got %q", ld.CityBlock)
	}
	if ld.Lot1 != "5" || ld.Lot2 != "6" {
		t.Errorf("lots: got %q, %q", ld.Lot1, ld.Lot2)
	}
}

func TestParse_FirstMatchOnly(t *testing.T) {
	ld := Parse("HIGHLAND PARK\nBLK A LT 3\nBLK B LT 9")

	if ld.Block != "A" {
		t.Errorf("block: expected first match A, got %q", ld.Block)
	}
	if ld.Lot1 != "3" {
		t.Errorf("lot1: expected first match 3, got %q", ld.Lot1)
	}
}

func TestParse_Irregular(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "whitespace only", text: "  \n \n"},
		{name: "prose with no tokens", text: "TR 4A ABST 610 J HARRIS"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ld := Parse(tc.text)
			if ld.HasLotBlock() {
				t.Errorf("expected insufficient data for %q", tc.text)
			}
			if ld.Block != "" || ld.Lot1 != "" {
				t.Errorf("expected empty block/lot, got %q/%q", ld.Block, ld.Lot1)
			}
		})
	}
}

func TestParse_BlockLineFirst(t *testing.T) {
	// First line is itself a block line: no subdivision can be inferred.
	ld := Parse("BLOCK 7\nLOT 14")

	if ld.Subdivision != "" {
		t.Errorf("subdivision: expected empty, got %q", ld.Subdivision)
	}
	if ld.Block != "7" || ld.Lot1 != "14" {
		t.Errorf("got block %q lot %q", ld.Block, ld.Lot1)
	}
}
