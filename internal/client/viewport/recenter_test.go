package viewport

import "testing"

func TestRecenter(t *testing.T) {
	tests := []struct {
		name                     string
		first, last, start, size int
		total                    int
		want                     int
		ok                       bool
	}{
		{"near bottom edge", 290, 310, 0, 300, 5000, 150, true},
		{"inside window", 100, 120, 0, 300, 5000, 0, false},
		{"top of table", 0, 20, 0, 300, 5000, 0, false},
		{"near top edge", 160, 180, 150, 300, 5000, 20, true},
		{"far jump", 4000, 4020, 0, 300, 5000, 3860, true},
		{"clamped to tail", 4990, 4999, 4000, 300, 5000, 4700, true},
		{"window covers table", 250, 270, 0, 300, 280, 0, false},
		{"placeholder row ignored", 279, 281, 0, 300, 280, 0, false},
		{"empty table", 0, 10, 0, 300, 0, 0, false},
		{"already centered", 225, 230, 76, 300, 5000, 76, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Recenter(tt.first, tt.last, tt.start, tt.size, tt.total)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Recenter(%d, %d, %d, %d, %d) = %d, %v; want %d, %v",
					tt.first, tt.last, tt.start, tt.size, tt.total, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestVisibleRange(t *testing.T) {
	tests := []struct {
		top, height, row float64
		first, last      int
	}{
		{0, 320, 32, 0, 9},
		{16, 320, 32, 0, 10},
		{3200, 640, 32, 100, 119},
		{-50, 100, 25, 0, 3},
		{10, 0, 32, 0, 0},
		{100, 100, 0, 0, 0},
	}
	for _, tt := range tests {
		first, last := VisibleRange(tt.top, tt.height, tt.row)
		if first != tt.first || last != tt.last {
			t.Errorf("VisibleRange(%v, %v, %v) = %d, %d; want %d, %d", tt.top, tt.height, tt.row, first, last, tt.first, tt.last)
		}
	}
}
