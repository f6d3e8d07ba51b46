package tkutil

import "testing"

func TestAtoi(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{raw: "42", want: 42},
		{raw: " 7\n", want: 7},
		{raw: "12.75", want: 12},
		{raw: "", want: 0},
		{raw: "wide", want: 0},
	}
	for _, tt := range tests {
		if got := Atoi(tt.raw); got != tt.want {
			t.Fatalf("Atoi(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParseView(t *testing.T) {
	first, last, err := ParseView("0.25 0.5\n")
	if err != nil || first != 0.25 || last != 0.5 {
		t.Fatalf("ParseView() = %v, %v, %v, want 0.25, 0.5, nil", first, last, err)
	}
	for _, raw := range []string{"", "0.1", "a b", "0.1 b"} {
		if _, _, err := ParseView(raw); err == nil {
			t.Fatalf("ParseView(%q) should fail", raw)
		}
	}
}
