package grid

import (
	"math"
	"testing"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{" 42 ", 42, true},
		{"-3.5", -3.5, true},
		{"+7", 7, true},
		{".5", 0.5, true},
		{"5.", 5, true},
		{"1e3", 1000, true},
		{"2.5E-1", 0.25, true},
		{"", 0, false},
		{"   ", 0, false},
		{"abc", 0, false},
		{"1,000", 0, false},
		{"0x10", 0, false},
		{"NaN", 0, false},
		{"Infinity", 0, false},
		{"1e400", 0, false},
		{"--1", 0, false},
		{".", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseNumber(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNumberOf(t *testing.T) {
	if _, ok := NumberOf(math.Inf(1)); ok {
		t.Error("expected +Inf to be rejected")
	}
	if _, ok := NumberOf(math.NaN()); ok {
		t.Error("expected NaN to be rejected")
	}
	if n, ok := NumberOf(int64(3)); !ok || n != 3 {
		t.Errorf("NumberOf(int64(3)) = %v, %v", n, ok)
	}
	if n, ok := NumberOf("41.9"); !ok || n != 41.9 {
		t.Errorf("NumberOf(\"41.9\") = %v, %v", n, ok)
	}
	if _, ok := NumberOf(true); ok {
		t.Error("expected bool to be rejected")
	}
}
