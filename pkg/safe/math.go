// Package safe provides overflow-checked int64 arithmetic for ledger
// math. An overflow means the account state is already corrupt, so the
// only sane response is to panic and halt before persisting garbage.
package safe

import (
	"math"
)

// SafeAdd performs int64 addition and panics on overflow/underflow.
func SafeAdd(a, b int64) int64 {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		panic("safe: int64 add overflow")
	}
	return a + b
}

// SafeSub performs int64 subtraction and panics on overflow/underflow.
func SafeSub(a, b int64) int64 {
	if (b > 0 && a < math.MinInt64+b) || (b < 0 && a > math.MaxInt64+b) {
		panic("safe: int64 sub overflow")
	}
	return a - b
}

// SafeMul performs int64 multiplication and panics on overflow.
func SafeMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > 0 {
		if b > 0 {
			if a > math.MaxInt64/b {
				panic("safe: int64 mul overflow")
			}
		} else {
			if b < math.MinInt64/a {
				panic("safe: int64 mul overflow")
			}
		}
	} else {
		if b > 0 {
			if a < math.MinInt64/b {
				panic("safe: int64 mul overflow")
			}
		} else {
			if a < math.MaxInt64/b {
				panic("safe: int64 mul overflow")
			}
		}
	}
	return a * b
}
