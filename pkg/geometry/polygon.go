package geometry

import "math"

// Ring is a closed sequence of vertices. The closing edge from the last
// vertex back to the first is implicit.
type Ring []Point2D

// SignedArea returns the shoelace area of the ring. With image coordinates
// (y pointing down) a clockwise ring has a positive area.
func (r Ring) SignedArea() float64 {
	if len(r) < 3 {
		return 0
	}
	var sum float64
	n := len(r)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += r[i].X*r[j].Y - r[j].X*r[i].Y
	}
	return sum / 2
}

// Area returns the absolute enclosed area of the ring.
func (r Ring) Area() float64 {
	return math.Abs(r.SignedArea())
}

// Translate returns a copy of the ring moved by d and then scaled by factor.
func (r Ring) Translate(d Point2D, factor float64) Ring {
	out := make(Ring, len(r))
	for i, p := range r {
		out[i] = p.Add(d).Scale(factor)
	}
	return out
}

// Canonical returns a copy of the ring wound so that the sign of its area
// matches sign (positive for outer rings, negative for holes) and rotated to
// start at its top-most, then left-most vertex.
func (r Ring) Canonical(sign float64) Ring {
	out := append(Ring(nil), r...)
	if a := out.SignedArea(); a != 0 && (a > 0) != (sign > 0) {
		for i, j := 1, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	start := 0
	for i, p := range out {
		if q := out[start]; p.Y < q.Y || (p.Y == q.Y && p.X < q.X) {
			start = i
		}
	}
	return append(append(make(Ring, 0, len(out)), out[start:]...), out[:start]...)
}
