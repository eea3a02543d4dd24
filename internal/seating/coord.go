// Package seating implements the seating chart core: the room grid, the
// active desk set, seat assignments, per-seat flags, and the arrangement
// operations over them.
package seating

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Coord identifies a grid cell. The wire form is the "row-col" key used in
// JSON payloads and by the AI endpoint contract.
type Coord struct {
	Row int
	Col int
}

// Key returns the "row-col" wire form.
func (c Coord) Key() string {
	return strconv.Itoa(c.Row) + "-" + strconv.Itoa(c.Col)
}

// Less orders coordinates row-major. This is the canonical desk iteration
// order wherever positional assignment depends on it.
func (c Coord) Less(other Coord) bool {
	if c.Row != other.Row {
		return c.Row < other.Row
	}
	return c.Col < other.Col
}

// ParseKey parses a "row-col" key. Row and col must be non-negative
// integers.
func ParseKey(key string) (Coord, error) {
	rawRow, rawCol, ok := strings.Cut(key, "-")
	if !ok {
		return Coord{}, fmt.Errorf("invalid coordinate key %q", key)
	}
	row, err := strconv.Atoi(rawRow)
	if err != nil || row < 0 {
		return Coord{}, fmt.Errorf("invalid coordinate key %q", key)
	}
	col, err := strconv.Atoi(rawCol)
	if err != nil || col < 0 {
		return Coord{}, fmt.Errorf("invalid coordinate key %q", key)
	}
	return Coord{Row: row, Col: col}, nil
}

func sortCoords(coords []Coord) {
	sort.Slice(coords, func(i, j int) bool {
		return coords[i].Less(coords[j])
	})
}
