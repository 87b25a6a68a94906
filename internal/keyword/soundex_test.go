package keyword

import "testing"

func TestSoundex(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Reference codes
		{"Robert", "R163"},
		{"Rupert", "R163"},
		{"Rubin", "R150"},
		{"Ashcraft", "A261"},
		{"Ashcroft", "A261"},
		{"Tymczak", "T522"},
		{"Pfister", "P236"},
		{"Honeyman", "H555"},

		// Catalog terms
		{"brake", "B620"},
		{"break", "B620"},
		{"toyota", "T300"},
		{"filter", "F436"},
		{"filtre", "F436"},

		// Case and punctuation
		{"BRAKE", "B620"},
		{"o'brien", "O165"},
		{"a", "A000"},

		// No letters
		{"", ""},
		{"1234", ""},
		{"---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Soundex(tt.input); got != tt.expected {
				t.Errorf("Soundex(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func BenchmarkSoundex(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Soundex("suspension")
	}
}
