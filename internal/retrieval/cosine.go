// Package retrieval ranks stored chunks against a query vector.
package retrieval

import "math"

// Cosine returns dot(a,b) / (|a|*|b|). It is NaN when either vector has
// zero norm and only compares the first min(len(a), len(b)) components.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
