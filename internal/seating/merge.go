package seating

// Proposal is a reconciliation result: seat assignments and flags the AI
// wants applied on top of the current chart.
type Proposal struct {
	Assignments map[Coord]string
	Flags       map[Coord]SeatFlags
}

// ApplyMerge overlays a proposal onto the chart. Proposal entries win per
// coordinate; everything the proposal does not mention is untouched. Every
// coordinate the proposal names is added to the desk set, so proposals may
// seat students beyond the desks that existed when the request was built.
// The new stores are built fully before being swapped in, so a merge never
// leaves the chart half-applied.
func (c *Chart) ApplyMerge(p Proposal) {
	desks := make(map[Coord]struct{}, len(c.desks)+len(p.Assignments)+len(p.Flags))
	for coord := range c.desks {
		desks[coord] = struct{}{}
	}
	assignments := make(map[Coord]string, len(c.assignments)+len(p.Assignments))
	for coord, name := range c.assignments {
		assignments[coord] = name
	}
	flags := make(map[Coord]SeatFlags, len(c.flags)+len(p.Flags))
	for coord, f := range c.flags {
		flags[coord] = f
	}

	for coord, name := range p.Assignments {
		desks[coord] = struct{}{}
		assignments[coord] = name
	}
	for coord, f := range p.Flags {
		desks[coord] = struct{}{}
		flags[coord] = f
	}

	c.desks = desks
	c.assignments = assignments
	c.flags = flags
	c.version++
}
