package services

// PageSize is the fixed number of diary entries per page.
const PageSize = 50

// PageIndexFromNumber maps a one-based page number from a request to a
// zero-based page index. Numbers below 1 are treated as 1.
func PageIndexFromNumber(number int) int {
	return max(number, 1) - 1
}
