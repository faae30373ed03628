package domain

const basisPoints = 10_000

// ComputeTotals sums the lines and applies taxBps (1/100 of a percent),
// rounding the tax half-up to the minor unit.
func ComputeTotals(lines []OrderLine, taxBps int64) (subtotal, tax, total int64) {
	for _, l := range lines {
		subtotal += l.LineTotal()
	}
	tax = (subtotal*taxBps + basisPoints/2) / basisPoints
	return subtotal, tax, subtotal + tax
}
