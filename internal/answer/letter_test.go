package answer

import "testing"

func TestExtractLetter(t *testing.T) {
	cases := []struct {
		in, def, want string
	}{
		{"B", "A", "B"},
		{" C.", "A", "C"},
		{"d) because", "A", "D"},
		{"A: something", "X", "A"},
		{"the answer is B", "A", "A"}, // letter not at start
		{"", "C", "C"},
		{"42", "B", "B"},
		{"K", "A", "A"}, // outside A-J
		{"BECAUSE", "A", "A"},
	}
	for _, tc := range cases {
		if got := ExtractLetter(tc.in, tc.def); got != tc.want {
			t.Errorf("ExtractLetter(%q, %q) = %q, want %q", tc.in, tc.def, got, tc.want)
		}
	}
}

func TestChoiceLetter(t *testing.T) {
	if l, ok := ChoiceLetter("B. I cannot answer this question"); !ok || l != "B" {
		t.Fatalf("ChoiceLetter = %q, %v; want B, true", l, ok)
	}
	if l, ok := ChoiceLetter("  D. spaced"); !ok || l != "D" {
		t.Fatalf("ChoiceLetter = %q, %v; want D, true", l, ok)
	}
	if _, ok := ChoiceLetter("no prefix here"); ok {
		t.Fatal("ChoiceLetter should not match without enumeration prefix")
	}
	if _, ok := ChoiceLetter("Z. out of range"); ok {
		t.Fatal("ChoiceLetter should not match letters past J")
	}
}
