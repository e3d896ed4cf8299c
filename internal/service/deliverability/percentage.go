package deliverability

import "math"

// Percentage returns round(part/total*100), or 0 when total is not positive.
// It is the only percentage rounding used for display.
func Percentage(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}
