package seating

import (
	"math/rand/v2"
	"sort"

	"golang.org/x/text/collate"
)

// SortAlpha gathers every non-empty name on the chart, sorts the list with
// the given collator, and reassigns names to desks in row-major order. Desks
// left over after the names run out become unoccupied. Seat flags stay where
// they are; they describe positions, not students.
func (c *Chart) SortAlpha(col *collate.Collator) {
	names := c.rosterNames()
	sort.SliceStable(names, func(i, j int) bool {
		return col.CompareString(names[i], names[j]) < 0
	})
	c.placeInOrder(names, c.orderedDesks())
}

// Shuffle redistributes the non-empty names across the desks at random.
func (c *Chart) Shuffle(rng *rand.Rand) {
	names := c.rosterNames()
	rng.Shuffle(len(names), func(i, j int) {
		names[i], names[j] = names[j], names[i]
	})
	desks := c.orderedDesks()
	rng.Shuffle(len(desks), func(i, j int) {
		desks[i], desks[j] = desks[j], desks[i]
	})
	c.placeInOrder(names, desks)
}

func (c *Chart) rosterNames() []string {
	names := make([]string, 0, len(c.assignments))
	for _, name := range c.assignments {
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (c *Chart) orderedDesks() []Coord {
	desks := make([]Coord, 0, len(c.desks))
	for coord := range c.desks {
		desks = append(desks, coord)
	}
	sortCoords(desks)
	return desks
}

// placeInOrder rebuilds the assignment store by pairing names with desks
// positionally. Names beyond the desk count are dropped.
func (c *Chart) placeInOrder(names []string, desks []Coord) {
	next := make(map[Coord]string, len(names))
	for i, coord := range desks {
		if i >= len(names) {
			break
		}
		next[coord] = names[i]
	}
	c.assignments = next
	c.version++
}
