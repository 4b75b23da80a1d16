package scoring

// gradeBands is ordered from the highest threshold down; the first match wins.
var gradeBands = []struct {
	min   float64
	grade string
}{
	{90, "A+"},
	{85, "A"},
	{80, "B+"},
	{75, "B"},
	{70, "C+"},
	{60, "C"},
	{50, "D"},
}

// Grade maps a percentage to its letter grade.
func Grade(percentage float64) string {
	for _, b := range gradeBands {
		if percentage >= b.min {
			return b.grade
		}
	}
	return "F"
}
