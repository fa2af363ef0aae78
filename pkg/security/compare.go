package security

// Equal compares two secrets in time that depends only on the longer input's length.
// Every position up to max(len(a), len(b)) is visited; the shorter input is read as
// zero bytes past its end and a length mismatch is folded into the same accumulator.
func Equal(a, b string) bool {
	return compare(a, b, nil)
}

func compare(a, b string, visit func(i int)) bool {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}

	var acc byte
	if len(a) != len(b) {
		acc = 1
	}
	for i := 0; i < n; i++ {
		var x, y byte
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		acc |= x ^ y
		if visit != nil {
			visit(i)
		}
	}
	return acc == 0
}
