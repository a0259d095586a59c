// Package hexgrid is the pure spatial model of the arena: flat-top axial
// hex coordinates, pixel projection, adjacency, and deterministic default
// placement. It has no dependencies and no state.
package hexgrid

import "math"

// Coord addresses one tile in axial (q, r) form.
type Coord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// Arena radii supported per variant: R=1 is a 7-tile arena, R=2 is 19.
const (
	RadiusSmall = 1
	RadiusLarge = 2
)

// TileCount returns the number of tiles inside radius r (1 + 3r(r+1)).
func TileCount(radius int) int {
	if radius < 0 {
		return 0
	}
	return 1 + 3*radius*(radius+1)
}

// Pixel projects a coordinate to its flat-top pixel center.
func Pixel(c Coord, size float64) (x, y float64) {
	x = size * 1.5 * float64(c.Q)
	y = size * math.Sqrt(3) * (float64(c.Q)/2 + float64(c.R))
	return x, y
}

// hexDist is the hex distance between the origin and (q, r).
func hexDist(q, r int) int {
	return max3(abs(q), abs(r), abs(q+r))
}

// Adjacent reports whether a and b share an edge.
func Adjacent(a, b Coord) bool {
	return hexDist(a.Q-b.Q, a.R-b.R) == 1
}

// InArena reports whether c lies inside the fixed arena radius.
func InArena(c Coord, radius int) bool {
	return hexDist(c.Q, c.R) <= radius
}

// directions in the fixed rotational order used for ring walks.
var directions = [6]Coord{
	{1, 0}, {1, -1}, {0, -1}, {-1, 0}, {-1, 1}, {0, 1},
}

// Ring returns the tiles at exactly distance k from the center, walked in
// a fixed rotational order starting from (-k, k). k=0 is the center alone.
func Ring(k int) []Coord {
	if k < 0 {
		return nil
	}
	if k == 0 {
		return []Coord{{0, 0}}
	}
	out := make([]Coord, 0, 6*k)
	c := Coord{-k, k}
	for _, d := range directions {
		for j := 0; j < k; j++ {
			out = append(out, c)
			c = Coord{c.Q + d.Q, c.R + d.R}
		}
	}
	return out
}

// Tiles returns every tile inside radius in the fixed preference order
// used for default placement: center first, then each ring outward.
func Tiles(radius int) []Coord {
	out := make([]Coord, 0, TileCount(radius))
	for k := 0; k <= radius; k++ {
		out = append(out, Ring(k)...)
	}
	return out
}

// Placement assigns tiles to agent ids deterministically: currently-alive
// agents first, dead after, each group preserving input order, zipped with
// the tile preference sequence. Agents beyond the tile count get no tile.
// Used only when no externally supplied mapping exists.
func Placement(ids []string, alive func(id string) bool, radius int) map[string]Coord {
	ordered := make([]string, 0, len(ids))
	for _, id := range ids {
		if alive == nil || alive(id) {
			ordered = append(ordered, id)
		}
	}
	for _, id := range ids {
		if alive != nil && !alive(id) {
			ordered = append(ordered, id)
		}
	}

	tiles := Tiles(radius)
	out := make(map[string]Coord, len(ordered))
	for i, id := range ordered {
		if i >= len(tiles) {
			break
		}
		out[id] = tiles[i]
	}
	return out
}

// Rect is an axis-aligned pixel rectangle.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Bounds computes the minimal rectangle covering every valid tile's pixel
// center, expanded by padding on all sides. Pure in radius, size, padding.
func Bounds(radius int, size, padding float64) Rect {
	r := Rect{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, c := range Tiles(radius) {
		x, y := Pixel(c, size)
		r.MinX = math.Min(r.MinX, x)
		r.MinY = math.Min(r.MinY, y)
		r.MaxX = math.Max(r.MaxX, x)
		r.MaxY = math.Max(r.MaxY, y)
	}
	r.MinX -= padding
	r.MinY -= padding
	r.MaxX += padding
	r.MaxY += padding
	return r
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func max3(a, b, c int) int {
	if b > a {
		a = b
	}
	if c > a {
		a = c
	}
	return a
}
