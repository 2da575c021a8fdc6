package gocog

import "testing"

func TestParseGhostOptionsTileLeader(t *testing.T) {
	raw := []byte("GDAL_STRUCTURAL_METADATA_SIZE=000140 bytes\n" +
		"LAYOUT=IFDS_BEFORE_DATA\n" +
		"BLOCK_ORDER=ROW_MAJOR\n" +
		"BLOCK_LEADER_SIZE_AS_UINT4=4\n" +
		"BLOCK_TRAILER_LAST_4_BYTES=YES\n" +
		"KNOWN_INCOMPATIBLE_EDITION=NO\n")

	g := parseGhostOptions(raw)
	if !g.hasTileLeader() {
		t.Fatal("expected hasTileLeader true")
	}
	if g.tileLeaderByteSize != 4 {
		t.Errorf("tileLeaderByteSize = %d, want 4", g.tileLeaderByteSize)
	}
	if v, ok := g.get("LAYOUT"); !ok || v != "IFDS_BEFORE_DATA" {
		t.Errorf("get(LAYOUT) = %q, %v", v, ok)
	}
	if _, ok := g.get("NOT_PRESENT"); ok {
		t.Error("expected NOT_PRESENT key to be absent")
	}
}

func TestParseGhostOptionsEmpty(t *testing.T) {
	g := parseGhostOptions(nil)
	if g == nil {
		t.Fatal("expected non-nil GhostOptions for empty input")
	}
	if g.hasTileLeader() {
		t.Error("expected hasTileLeader false for empty block")
	}
}

func TestParseGhostOptionsOversized(t *testing.T) {
	huge := make([]byte, maxGhostSize+1)
	for i := range huge {
		huge[i] = 'A'
	}
	g := parseGhostOptions(huge)
	if g.hasTileLeader() {
		t.Error("expected oversized block to be ignored, not parsed")
	}
}

func TestParseGhostOptionsMalformedLines(t *testing.T) {
	raw := []byte("no_equals_sign_here\n=empty_key\nKEY=value\n")
	g := parseGhostOptions(raw)
	if v, ok := g.get("KEY"); !ok || v != "value" {
		t.Errorf("get(KEY) = %q, %v, want value, true", v, ok)
	}
}
