package core

import "testing"

func TestHighlighterMatch(t *testing.T) {
	h := NewHighlighter([]string{"golang", "  ", "Release"})

	tests := []struct {
		text string
		want bool
	}{
		{text: "alice: ping", want: true},
		{text: "hey ALICE!", want: true},
		{text: "malice aforethought", want: false},
		{text: "alice_ is someone else", want: false},
		{text: "new GoLang release out", want: true},
		{text: "golangci-lint is slow", want: false},
		{text: "nothing here", want: false},
		{text: "", want: false},
	}
	for _, tt := range tests {
		if got := h.Match(tt.text, "alice"); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestHighlighterNilMatchesNickOnly(t *testing.T) {
	var h *Highlighter
	if !h.Match("hi alice", "alice") {
		t.Fatalf("expected nick match on nil highlighter")
	}
	if h.Match("hi bob", "alice") {
		t.Fatalf("unexpected match")
	}
}
