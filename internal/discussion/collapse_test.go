package discussion

import "testing"

func TestCollapseToggle(t *testing.T) {
	s := NewCollapseState()
	if s.IsCollapsed("m1") {
		t.Fatalf("fresh state should have nothing collapsed")
	}
	s.Toggle("m1")
	if !s.IsCollapsed("m1") {
		t.Fatalf("m1 should be collapsed after toggle")
	}
	s.Toggle("m1")
	if s.IsCollapsed("m1") {
		t.Fatalf("second toggle should expand m1")
	}
}

func TestCollapseReset(t *testing.T) {
	s := NewCollapseState()
	s.Toggle("a")
	s.Toggle("b")
	s.Reset()
	if s.IsCollapsed("a") || s.IsCollapsed("b") {
		t.Fatalf("reset should clear all flags")
	}
}
