package amat

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// wrapAngle returns a wrapped to (-π, π].
func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// norm returns the norm of a given vector which is supposed to be 3x1.
func norm(v []float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// unit returns the unit vector of a given vector.
func unit(a []float64) (b []float64) {
	n := norm(a)
	if scalar.EqualWithinAbs(n, 0, 1e-12) {
		return []float64{0, 0, 0}
	}
	b = make([]float64, len(a))
	for i, val := range a {
		b[i] = val / n
	}
	return
}

// dot performs the inner product via gonum/BLAS.
func dot(a, b []float64) float64 {
	return mat.Dot(mat.NewVecDense(len(a), a), mat.NewVecDense(len(b), b))
}

// cross performs the cross product.
func cross(a, b []float64) []float64 {
	return []float64{a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0]}
}

// sphericalUnit returns the planet-centered unit vector at longitude θ and latitude φ.
func sphericalUnit(θ, φ float64) []float64 {
	sθ, cθ := math.Sincos(θ)
	sφ, cφ := math.Sincos(φ)
	return []float64{cφ * cθ, cφ * sθ, sφ}
}

// localHorizontal returns the local east and north unit vectors at longitude θ and latitude φ.
func localHorizontal(θ, φ float64) (east, north []float64) {
	sθ, cθ := math.Sincos(θ)
	sφ, cφ := math.Sincos(φ)
	return []float64{-sθ, cθ, 0}, []float64{-sφ * cθ, -sφ * sθ, cφ}
}
