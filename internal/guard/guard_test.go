package guard

import "testing"

func TestEnterExitReportsName(t *testing.T) {
	s := Enter("render_tile")
	snap := s.Exit()
	if snap.Name != "render_tile" {
		t.Errorf("Name = %q, want render_tile", snap.Name)
	}
}

func TestExitDurationIsNonNegative(t *testing.T) {
	s := Enter("op")
	snap := s.Exit()
	if snap.Duration < 0 {
		t.Errorf("Duration = %v, want >= 0", snap.Duration)
	}
}

func TestProcessRSSBytesDoesNotPanic(t *testing.T) {
	_ = ProcessRSSBytes()
}

func TestSnapshotLogValueIncludesScopeName(t *testing.T) {
	s := Enter("decode")
	snap := s.Exit()
	v := snap.LogValue()
	if v.Kind().String() != "Group" {
		t.Fatalf("LogValue kind = %v, want Group", v.Kind())
	}
	found := false
	for _, a := range v.Group() {
		if a.Key == "scope" && a.Value.String() == "decode" {
			found = true
		}
	}
	if !found {
		t.Errorf("LogValue group %v lacks scope=decode", v)
	}
}
