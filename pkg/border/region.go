package border

// Point is an integer pixel coordinate, always interpreted against the
// raster generation the containing region was computed from.
type Point struct {
	X, Y int
}

// Region is a set of 8-connected mask points produced by flood fill.
type Region struct {
	Points []Point
}

// Size returns the point count.
func (rg Region) Size() int { return len(rg.Points) }

// Bounds returns the axis-aligned bounding box of the region. ok is false
// for an empty region.
func (rg Region) Bounds() (minX, minY, maxX, maxY int, ok bool) {
	if len(rg.Points) == 0 {
		return 0, 0, 0, 0, false
	}
	p0 := rg.Points[0]
	minX, maxX = p0.X, p0.X
	minY, maxY = p0.Y, p0.Y
	for _, p := range rg.Points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return minX, minY, maxX, maxY, true
}

// seedStride controls the coarse seeding grid. Any region worth keeping
// spans far more than 5 pixels in both axes, so full-resolution seeding
// buys nothing.
const seedStride = 5

// LargestComponent flood-fills the mask from a coarse seed grid and returns
// the biggest connected region found. Ties go to the first region in scan
// order (top-to-bottom, left-to-right). An empty mask yields an empty
// region; callers must treat that as a detection failure.
//
// Filled pixels are marked visited and never revisited, so the overall cost
// stays O(W*H) regardless of the seeding stride.
func LargestComponent(m *Mask) Region {
	visited := make([]bool, m.W*m.H)
	var best Region
	for y := 0; y < m.H; y += seedStride {
		for x := 0; x < m.W; x += seedStride {
			idx := y*m.W + x
			if visited[idx] || !m.bits[idx] {
				continue
			}
			rg := floodFill(m, visited, x, y)
			if rg.Size() > best.Size() {
				best = rg
			}
		}
	}
	return best
}

// floodFill collects the 8-connected component containing (sx, sy) using an
// explicit stack; recursion depth on large receipts would blow the goroutine
// stack long before this allocates comparably.
func floodFill(m *Mask, visited []bool, sx, sy int) Region {
	stack := []Point{{X: sx, Y: sy}}
	visited[sy*m.W+sx] = true
	var pts []Point
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		pts = append(pts, p)
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || ny < 0 || nx >= m.W || ny >= m.H {
					continue
				}
				ni := ny*m.W + nx
				if visited[ni] || !m.bits[ni] {
					continue
				}
				visited[ni] = true
				stack = append(stack, Point{X: nx, Y: ny})
			}
		}
	}
	return Region{Points: pts}
}
