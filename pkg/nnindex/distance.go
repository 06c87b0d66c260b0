package nnindex

import (
	"fmt"
	"math"
)

// distanceFunc computes the distance between two equal-length vectors.
type distanceFunc func(a, b []float64) float64

var distances = map[string]distanceFunc{
	"euclidean": euclideanDistance,
	"cosine":    cosineDistance,
	"manhattan": manhattanDistance,
}

func distanceByName(name string) (distanceFunc, error) {
	fn, ok := distances[name]
	if !ok {
		return nil, fmt.Errorf("unknown distance metric %q", name)
	}
	return fn, nil
}

func euclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// cosineDistance is 1 - cosine similarity; zero vectors are maximally
// distant.
func cosineDistance(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func manhattanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}
