package deliverability

import "testing"

func TestPercentage(t *testing.T) {
	tests := []struct {
		part, total, want int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{-3, 0, 0},
		{7, -1, 0},
		{10, 10, 100},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13}, // 12.5 rounds half up
		{1, 200, 1},
		{1, 201, 0},
		{0, 50, 0},
	}

	for _, tt := range tests {
		if got := Percentage(tt.part, tt.total); got != tt.want {
			t.Errorf("Percentage(%d, %d) = %d, want %d", tt.part, tt.total, got, tt.want)
		}
	}
}

func TestPercentage_WholeIsHundred(t *testing.T) {
	for total := 1; total <= 1000; total++ {
		if got := Percentage(total, total); got != 100 {
			t.Fatalf("Percentage(%d, %d) = %d, want 100", total, total, got)
		}
		if got := Percentage(total, 0); got != 0 {
			t.Fatalf("Percentage(%d, 0) = %d, want 0", total, got)
		}
	}
}
