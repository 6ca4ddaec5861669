package costmodel

import "fmt"

// Repetitions returns the repetition number r for a segment of m positions
// reversed with f free slots: the largest number of times any single
// position is recomputed under the optimal schedule.
//
// With s = f+1 stored states (the segment anchor included), r is the unique
// integer with C(s+r-1, s) < m <= C(s+r, s).
func Repetitions(m, f int) (int, error) {
	if m < 0 || f < 0 {
		return 0, fmt.Errorf("%w: length=%d budget=%d", ErrInvalidBudget, m, f)
	}
	r, _ := repetitions(int64(m), int64(f)+1)
	return int(r), nil
}

// repetitions returns r and beta = C(s+r, s) for m >= 1.
func repetitions(m, s int64) (r, beta int64) {
	beta = 1
	for beta < m {
		r++
		beta = beta * (s + r) / r
	}
	return r, beta
}

// ClosedForm returns R(m, f) without building a table:
//
//	R(m, f) = r*m - C(s+r, s+1)    with s = f+1, r = Repetitions(m, f)
//
// It agrees with Table.Cold for every m and f and is cheap enough to report
// costs for sequences far too long to tabulate.
func ClosedForm(m, f int) (int64, error) {
	if m < 0 || f < 0 {
		return 0, fmt.Errorf("%w: length=%d budget=%d", ErrInvalidBudget, m, f)
	}
	if m <= 1 {
		return 0, nil
	}
	if f == 0 {
		return int64(m) * int64(m-1) / 2, nil
	}

	s := int64(f) + 1
	r, beta := repetitions(int64(m), s)
	// C(s+r, s+1) = C(s+r, s) * r / (s+1)
	return r*int64(m) - beta*r/(s+1), nil
}
