package matching

import "math"

// Dot returns the dot product of a and b. Mismatched lengths truncate to the
// shorter vector; that is a documented tolerance, not an error.
func Dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm returns the Euclidean norm of a.
func Norm(a []float64) float64 {
	return math.Sqrt(Dot(a, a))
}

// Cosine returns the cosine similarity of a and b, or 0 when either vector
// has zero norm. A zero vector (e.g. a failed embedding) never panics and
// never contributes similarity.
func Cosine(a, b []float64) float64 {
	na := Norm(a)
	nb := Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / (na * nb)
}

// ValidVector reports whether v is usable for matching: non-empty, matching
// the expected dimensionality when dim > 0, all components finite, and not
// all-zero. Invalid vectors are treated as absent rather than matched against,
// which avoids spuriously low-but-nonzero similarity noise.
func ValidVector(v []float64, dim int) bool {
	if len(v) == 0 {
		return false
	}
	if dim > 0 && len(v) != dim {
		return false
	}
	allZero := true
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
		if x != 0 {
			allZero = false
		}
	}
	return !allZero
}
