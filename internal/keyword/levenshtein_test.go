package keyword

import "testing"

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		// Identical strings
		{"identical empty", "", "", 0},
		{"identical word", "brake", "brake", 0},
		{"identical unicode", "こんにちは", "こんにちは", 0},

		// Empty string cases
		{"empty a", "", "clutch", 6},
		{"empty b", "clutch", "", 6},

		// Single character differences
		{"one substitution", "pad", "pod", 1},
		{"one insertion", "pad", "pads", 1},
		{"one deletion", "pads", "pad", 1},

		// Multiple differences
		{"kitten to sitting", "kitten", "sitting", 3},
		{"saturday to sunday", "saturday", "sunday", 3},

		// Common catalog typos
		{"toyta", "toyta", "toyota", 1},
		{"brak", "brak", "brake", 1},
		{"corola", "corola", "corolla", 1},
		{"filtre", "filtre", "filter", 2},

		// Case sensitivity
		{"case difference", "Brake", "brake", 1},

		// Unicode
		{"unicode substitution", "citroën", "citroen", 1},

		// Transposition is two edits in plain Levenshtein
		{"transposition ab-ba", "ab", "ba", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := LevenshteinDistance(tt.a, tt.b)
			if result != tt.expected {
				t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, result, tt.expected)
			}
			resultReverse := LevenshteinDistance(tt.b, tt.a)
			if result != resultReverse {
				t.Errorf("LevenshteinDistance is not symmetric: (%q,%q)=%d, (%q,%q)=%d",
					tt.a, tt.b, result, tt.b, tt.a, resultReverse)
			}
		})
	}
}

func TestLevenshteinWithin(t *testing.T) {
	tests := []struct {
		a, b     string
		max      int
		wantDist int
		wantOK   bool
	}{
		{"brak", "brake", 1, 1, true},
		{"brak", "brake", 0, 0, false},
		{"filtre", "filter", 2, 2, true},
		{"filtre", "filter", 1, 0, false},
		{"pad", "gasket", 2, 0, false},
		{"", "ab", 2, 2, true},
		{"", "abc", 2, 0, false},
		{"same", "same", 0, 0, true},
	}
	for _, tt := range tests {
		d, ok := LevenshteinWithin(tt.a, tt.b, tt.max)
		if ok != tt.wantOK {
			t.Errorf("LevenshteinWithin(%q, %q, %d) ok = %v, want %v", tt.a, tt.b, tt.max, ok, tt.wantOK)
			continue
		}
		if ok && d != tt.wantDist {
			t.Errorf("LevenshteinWithin(%q, %q, %d) = %d, want %d", tt.a, tt.b, tt.max, d, tt.wantDist)
		}
		if ok && d != LevenshteinDistance(tt.a, tt.b) {
			t.Errorf("LevenshteinWithin(%q, %q) disagrees with LevenshteinDistance", tt.a, tt.b)
		}
	}
}

func TestMin3(t *testing.T) {
	tests := []struct {
		a, b, c  int
		expected int
	}{
		{1, 2, 3, 1},
		{3, 1, 2, 1},
		{2, 3, 1, 1},
		{1, 1, 1, 1},
		{-1, 0, 1, -1},
	}

	for _, tt := range tests {
		result := min3(tt.a, tt.b, tt.c)
		if result != tt.expected {
			t.Errorf("min3(%d, %d, %d) = %d, want %d", tt.a, tt.b, tt.c, result, tt.expected)
		}
	}
}

func BenchmarkLevenshteinDistance_Short(b *testing.B) {
	for i := 0; i < b.N; i++ {
		LevenshteinDistance("kitten", "sitting")
	}
}

func BenchmarkLevenshteinWithin_EarlyExit(b *testing.B) {
	for i := 0; i < b.N; i++ {
		LevenshteinWithin("suspension", "stabilizer", 2)
	}
}
