package seating

const (
	defaultRows = 7
	defaultCols = 9
)

// Flag types a seat can carry.
const (
	FlagIEP = "IEP"
	Flag504 = "504"
	FlagELL = "ELL"
)

// ValidFlagType reports whether s is one of the supported seat flag types.
func ValidFlagType(s string) bool {
	return s == FlagIEP || s == Flag504 || s == FlagELL
}

// SeatFlags carries the per-seat accommodations metadata.
type SeatFlags struct {
	IsPriority bool   `json:"isPriority"`
	Type       string `json:"type,omitempty"`
}

// Settings holds the chart header fields shown on exports.
type Settings struct {
	ClassName string `json:"className"`
	Period    string `json:"period"`
	DateLabel string `json:"dateLabel"`
}

// State is the wire snapshot of a chart. Desk, assignment, and flag keys use
// the "row-col" form. Desks may lie outside the current grid bounds; they are
// retained across resizes and simply not rendered until the grid grows back.
type State struct {
	Rows        int                  `json:"rows"`
	Cols        int                  `json:"cols"`
	Desks       []string             `json:"desks"`
	Assignments map[string]string    `json:"assignments"`
	Metadata    map[string]SeatFlags `json:"metadata"`
	Settings    Settings             `json:"settings"`
	Version     int64                `json:"version"`
}

// Chart is the mutable seating chart aggregate. It is not safe for
// concurrent use; callers serialize access per chart.
type Chart struct {
	rows        int
	cols        int
	desks       map[Coord]struct{}
	assignments map[Coord]string
	flags       map[Coord]SeatFlags
	settings    Settings
	version     int64
}

// NewChart returns a chart with the default room layout: a 7x9 grid with a
// block of eight desks near the front.
func NewChart() *Chart {
	c := &Chart{
		rows:        defaultRows,
		cols:        defaultCols,
		desks:       make(map[Coord]struct{}),
		assignments: make(map[Coord]string),
		flags:       make(map[Coord]SeatFlags),
		version:     1,
	}
	for row := 1; row <= 2; row++ {
		for col := 2; col <= 5; col++ {
			c.desks[Coord{Row: row, Col: col}] = struct{}{}
		}
	}
	return c
}

// FromState rebuilds a chart from a stored snapshot. Entries whose keys do
// not parse are dropped; they can only come from corrupted storage.
func FromState(st State) *Chart {
	c := &Chart{
		rows:        st.Rows,
		cols:        st.Cols,
		desks:       make(map[Coord]struct{}, len(st.Desks)),
		assignments: make(map[Coord]string, len(st.Assignments)),
		flags:       make(map[Coord]SeatFlags, len(st.Metadata)),
		settings:    st.Settings,
		version:     st.Version,
	}
	if c.rows < 1 {
		c.rows = 1
	}
	if c.cols < 1 {
		c.cols = 1
	}
	for _, key := range st.Desks {
		coord, err := ParseKey(key)
		if err != nil {
			continue
		}
		c.desks[coord] = struct{}{}
	}
	for key, name := range st.Assignments {
		coord, err := ParseKey(key)
		if err != nil {
			continue
		}
		c.assignments[coord] = name
	}
	for key, flags := range st.Metadata {
		coord, err := ParseKey(key)
		if err != nil {
			continue
		}
		c.flags[coord] = flags
	}
	return c
}

// State returns a wire snapshot with desk keys in row-major order.
func (c *Chart) State() State {
	desks := make([]Coord, 0, len(c.desks))
	for coord := range c.desks {
		desks = append(desks, coord)
	}
	sortCoords(desks)
	st := State{
		Rows:        c.rows,
		Cols:        c.cols,
		Desks:       make([]string, 0, len(desks)),
		Assignments: make(map[string]string, len(c.assignments)),
		Metadata:    make(map[string]SeatFlags, len(c.flags)),
		Settings:    c.settings,
		Version:     c.version,
	}
	for _, coord := range desks {
		st.Desks = append(st.Desks, coord.Key())
	}
	for coord, name := range c.assignments {
		st.Assignments[coord.Key()] = name
	}
	for coord, flags := range c.flags {
		st.Metadata[coord.Key()] = flags
	}
	return st
}

// Version returns the mutation counter used for merge staleness checks.
func (c *Chart) Version() int64 {
	return c.version
}

// Resize sets the grid dimensions, coercing anything below 1 up to 1.
// Desks, assignments, and flags outside the new bounds are kept so that
// growing the grid back restores them.
func (c *Chart) Resize(rows, cols int) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	c.rows = rows
	c.cols = cols
	c.version++
}

// ToggleResult describes the outcome of a desk toggle.
type ToggleResult struct {
	Coord   Coord
	Active  bool
	Blocked bool
}

// ToggleDesk flips a cell between desk and empty. Deactivating a desk whose
// seat holds a non-empty name is refused and reported as Blocked; the desk,
// its assignment, and its flags are untouched. Deactivating an unoccupied
// desk clears its assignment entry and flags.
func (c *Chart) ToggleDesk(row, col int) ToggleResult {
	coord := Coord{Row: row, Col: col}
	if _, active := c.desks[coord]; active {
		if c.assignments[coord] != "" {
			return ToggleResult{Coord: coord, Active: true, Blocked: true}
		}
		delete(c.desks, coord)
		delete(c.assignments, coord)
		delete(c.flags, coord)
		c.version++
		return ToggleResult{Coord: coord, Active: false}
	}
	c.desks[coord] = struct{}{}
	c.version++
	return ToggleResult{Coord: coord, Active: true}
}

// SetAssignment stores a name for a seat, overwriting whatever is there.
// An empty name is a legal stored value and marks the seat unoccupied.
func (c *Chart) SetAssignment(coord Coord, name string) {
	c.assignments[coord] = name
	c.version++
}

// SetSeatFlags replaces the flags for a seat. A nil value removes the entry.
func (c *Chart) SetSeatFlags(coord Coord, flags *SeatFlags) {
	if flags == nil {
		delete(c.flags, coord)
	} else {
		c.flags[coord] = *flags
	}
	c.version++
}

// UpdateSettings replaces the chart header fields.
func (c *Chart) UpdateSettings(s Settings) {
	c.settings = s
	c.version++
}
