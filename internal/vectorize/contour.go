package vectorize

import (
	"image"
	"math"
	"sort"

	"gocv.io/x/gocv"

	"provmap/internal/segment"
	"provmap/pkg/geometry"
)

// TracePolygons extracts the pixel-edge outlines of a mask with OpenCV and
// pairs every outer ring with its holes. Pixel (x, y) covers the unit square
// from (x, y) to (x+1, y+1). Outer rings have a positive signed area in image
// coordinates, holes a negative one, and every ring starts at its top-left
// vertex. Polygons are ordered by their first vertex.
//
// findContours follows pixel centers, so the mask is drawn on a lattice of
// twice its resolution where each pixel fills a closed 3x3 block. Block
// borders fall on even lattice lines and halve back to pixel edges. With
// Four, pixels that touch only at a corner are split apart by labeling the
// 4-connected components first and tracing each one on its own.
func TracePolygons(mask *segment.Mask, conn segment.Connectivity) []Polygon {
	b := mask.Bounds()
	if b.Empty() {
		return nil
	}

	var polys []Polygon
	if conn == segment.Four {
		labels, n := labelComponents(mask, b, 4)
		for l := int32(1); l < int32(n); l++ {
			polys = append(polys, traceLattice(b, func(x, y int) bool {
				return labels[(y-b.Min.Y)*b.Dx()+(x-b.Min.X)] == l
			})...)
		}
	} else {
		polys = traceLattice(b, mask.At)
	}

	sort.SliceStable(polys, func(i, j int) bool {
		return topLeft(polys[i].Outer[0], polys[j].Outer[0])
	})
	return polys
}

// labelComponents returns the connected component label of every pixel in b
// (0 for pixels outside the mask) and the label count including background.
func labelComponents(mask *segment.Mask, b image.Rectangle, conn int) ([]int32, int) {
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), b.Dy(), b.Dx(), gocv.MatTypeCV8U)
	defer src.Close()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.At(x, y) {
				src.SetUCharAt(y-b.Min.Y, x-b.Min.X, 255)
			}
		}
	}

	labels := gocv.NewMat()
	defer labels.Close()
	n := gocv.ConnectedComponentsWithParams(src, &labels, conn, gocv.MatTypeCV32S, gocv.CCL_DEFAULT)

	out := make([]int32, b.Dx()*b.Dy())
	for row := 0; row < b.Dy(); row++ {
		for col := 0; col < b.Dx(); col++ {
			out[row*b.Dx()+col] = labels.GetIntAt(row, col)
		}
	}
	return out, n
}

// traceLattice traces the pixels of b selected by in. Contours are retrieved
// two levels deep: outer boundaries, and the holes directly inside them.
// Islands within holes come back as outer boundaries of their own.
func traceLattice(b image.Rectangle, in func(x, y int) bool) []Polygon {
	// One pixel of zero padding keeps every contour off the image border.
	w, h := 2*b.Dx()+3, 2*b.Dy()+3
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8U)
	defer src.Close()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !in(x, y) {
				continue
			}
			col, row := 2*(x-b.Min.X)+1, 2*(y-b.Min.Y)+1
			for dy := 0; dy < 3; dy++ {
				for dx := 0; dx < 3; dx++ {
					src.SetUCharAt(row+dy, col+dx, 255)
				}
			}
		}
	}

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()
	contours := gocv.FindContoursWithParams(src, &hierarchy, gocv.RetrievalCComp, gocv.ChainApproxNone)
	defer contours.Close()

	var polys []Polygon
	for i := 0; i < contours.Size(); i++ {
		// next, previous, first child, parent
		link := hierarchy.GetVeciAt(0, i)
		if link[3] >= 0 {
			continue
		}
		outer := latticeRing(contours.At(i), b.Min).Canonical(1)
		if len(outer) < 3 {
			continue
		}
		p := Polygon{Outer: outer}
		for c := int(link[2]); c >= 0; c = int(hierarchy.GetVeciAt(0, c)[0]) {
			contour := contours.At(c)
			if gocv.ContourArea(contour) == 0 {
				continue
			}
			if hole := latticeRing(contour, b.Min).Canonical(-1); len(hole) >= 3 {
				p.Holes = append(p.Holes, hole)
			}
		}
		sort.SliceStable(p.Holes, func(i, j int) bool {
			return topLeft(p.Holes[i][0], p.Holes[j][0])
		})
		polys = append(polys, p)
	}
	return polys
}

// latticeRing converts a lattice contour back to pixel-edge coordinates and
// keeps only the vertices where the boundary turns.
func latticeRing(contour gocv.PointVector, origin image.Point) geometry.Ring {
	pts := contour.ToPoints()
	n := len(pts)
	if n == 0 {
		return nil
	}

	pad := image.Pt(1, 1)
	path := make([]image.Point, 0, n+n/2)
	for i, p := range pts {
		p = p.Sub(pad)
		q := pts[(i+1)%n].Sub(pad)
		if len(path) == 0 || path[len(path)-1] != p {
			path = append(path, p)
		}
		// A diagonal step cuts across a corner of the block outline; the
		// corner is where the two lattice lines it connects meet.
		if d := q.Sub(p); d.X != 0 && d.Y != 0 {
			path = append(path, image.Pt(evenOf(p.X, q.X), evenOf(p.Y, q.Y)))
		}
	}
	for len(path) > 1 && path[0] == path[len(path)-1] {
		path = path[:len(path)-1]
	}

	m := len(path)
	ring := make(geometry.Ring, 0, 8)
	for i, p := range path {
		a := p.Sub(path[(i+m-1)%m])
		c := path[(i+1)%m].Sub(p)
		if a.X*c.Y == a.Y*c.X && a.X*c.X+a.Y*c.Y > 0 {
			continue
		}
		ring = append(ring, geometry.Point2D{
			X: float64(origin.X) + float64(p.X)/2,
			Y: float64(origin.Y) + float64(p.Y)/2,
		})
	}
	return ring
}

// simplifyRing runs OpenCV's Douglas-Peucker on a closed ring with an epsilon
// of percent of the ring's perimeter. A percent of 0 keeps every vertex.
func simplifyRing(r geometry.Ring, percent, sign float64) geometry.Ring {
	if percent <= 0 || len(r) <= 3 {
		return append(geometry.Ring(nil), r...)
	}

	pts := make([]image.Point, len(r))
	for i, p := range r {
		pts[i] = image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
	}
	curve := gocv.NewPointVectorFromPoints(pts)
	defer curve.Close()
	approx := gocv.ApproxPolyDP(curve, gocv.ArcLength(curve, true)*percent/100, true)
	defer approx.Close()

	out := make(geometry.Ring, 0, approx.Size())
	for _, p := range approx.ToPoints() {
		out = append(out, geometry.Point2D{X: float64(p.X), Y: float64(p.Y)})
	}
	return out.Canonical(sign)
}

// spanTriangle keeps three vertices of r: the first, the one farthest from
// it and the one farthest from the chord between those two.
func spanTriangle(r geometry.Ring) geometry.Ring {
	far, best := 0, 0.0
	for i, p := range r {
		if d := math.Hypot(p.X-r[0].X, p.Y-r[0].Y); d > best {
			far, best = i, d
		}
	}
	apex, best := -1, 0.0
	a, c := r[0], r[far]
	for i, p := range r {
		if d := math.Abs((c.X-a.X)*(p.Y-a.Y) - (c.Y-a.Y)*(p.X-a.X)); d > best {
			apex, best = i, d
		}
	}
	if far == 0 || apex < 0 {
		return append(geometry.Ring(nil), r...)
	}
	idx := []int{0, far, apex}
	sort.Ints(idx)
	return geometry.Ring{r[idx[0]], r[idx[1]], r[idx[2]]}.Canonical(1)
}

func evenOf(a, b int) int {
	if a%2 == 0 {
		return a
	}
	return b
}

func topLeft(p, q geometry.Point2D) bool {
	return p.Y < q.Y || (p.Y == q.Y && p.X < q.X)
}
