package seating

import (
	"math/rand/v2"
	"sort"
	"testing"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

func englishCollator() *collate.Collator {
	return collate.New(language.English)
}

func TestSortAlphaReassignsRowMajor(t *testing.T) {
	chart := NewChart()
	chart.SetAssignment(Coord{Row: 2, Col: 4}, "Zoe Park")
	chart.SetAssignment(Coord{Row: 1, Col: 5}, "ana silva")
	chart.SetAssignment(Coord{Row: 2, Col: 2}, "Ben Zhao")

	chart.SortAlpha(englishCollator())
	st := chart.State()

	// Collation puts "ana" before "Zoe"; a byte sort would not.
	if st.Assignments["1-2"] != "ana silva" {
		t.Errorf("first desk = %q, want %q", st.Assignments["1-2"], "ana silva")
	}
	if st.Assignments["1-3"] != "Ben Zhao" {
		t.Errorf("second desk = %q, want %q", st.Assignments["1-3"], "Ben Zhao")
	}
	if st.Assignments["1-4"] != "Zoe Park" {
		t.Errorf("third desk = %q, want %q", st.Assignments["1-4"], "Zoe Park")
	}
	if len(st.Assignments) != 3 {
		t.Errorf("desks past the roster must be unoccupied, got %v", st.Assignments)
	}
}

func TestSortAlphaWithDuplicateNames(t *testing.T) {
	chart := NewChart()
	chart.SetAssignment(Coord{Row: 2, Col: 5}, "Ana Silva")
	chart.SetAssignment(Coord{Row: 1, Col: 2}, "Ben Zhao")
	chart.SetAssignment(Coord{Row: 2, Col: 3}, "Ana Silva")

	chart.SortAlpha(englishCollator())
	st := chart.State()

	if st.Assignments["1-2"] != "Ana Silva" || st.Assignments["1-3"] != "Ana Silva" {
		t.Errorf("duplicates must both survive the sort: %v", st.Assignments)
	}
	if st.Assignments["1-4"] != "Ben Zhao" {
		t.Errorf("expected Ben Zhao on the third desk, got %v", st.Assignments)
	}
}

func TestSortAlphaSkipsEmptySeats(t *testing.T) {
	chart := NewChart()
	chart.SetAssignment(Coord{Row: 1, Col: 2}, "")
	chart.SetAssignment(Coord{Row: 2, Col: 3}, "Ben Zhao")

	chart.SortAlpha(englishCollator())
	st := chart.State()

	if st.Assignments["1-2"] != "Ben Zhao" {
		t.Errorf("expected the only name on the first desk, got %v", st.Assignments)
	}
	if len(st.Assignments) != 1 {
		t.Errorf("empty seats must not be treated as names: %v", st.Assignments)
	}
}

func TestSortAlphaLeavesFlagsInPlace(t *testing.T) {
	chart := NewChart()
	chart.SetAssignment(Coord{Row: 2, Col: 5}, "Ana Silva")
	chart.SetSeatFlags(Coord{Row: 2, Col: 5}, &SeatFlags{Type: FlagIEP})

	chart.SortAlpha(englishCollator())
	st := chart.State()

	if st.Metadata["2-5"].Type != FlagIEP {
		t.Errorf("flags describe positions and must not move: %v", st.Metadata)
	}
}

func TestSortAlphaTruncatesWhenRosterExceedsDesks(t *testing.T) {
	// One desk, three names: two seats' worth of names evaporate.
	chart := FromState(State{
		Rows:  1,
		Cols:  1,
		Desks: []string{"0-0"},
		Assignments: map[string]string{
			"5-5": "Carla Reyes",
			"6-6": "Ana Silva",
			"7-7": "Ben Zhao",
		},
		Version: 1,
	})
	chart.SortAlpha(englishCollator())
	st := chart.State()

	if len(st.Assignments) != 1 {
		t.Fatalf("expected one occupied desk, got %v", st.Assignments)
	}
	if st.Assignments["0-0"] != "Ana Silva" {
		t.Errorf("the alphabetically first name wins the seat: %v", st.Assignments)
	}
}

func TestShufflePreservesRoster(t *testing.T) {
	chart := NewChart()
	want := []string{"Ana Silva", "Ben Zhao", "Carla Reyes", "Dmitri Volkov", "Elena Ruiz"}
	cols := []int{2, 3, 4, 5, 2}
	rows := []int{1, 1, 1, 1, 2}
	for i, name := range want {
		chart.SetAssignment(Coord{Row: rows[i], Col: cols[i]}, name)
	}

	rng := rand.New(rand.NewPCG(11, 42))
	chart.Shuffle(rng)
	st := chart.State()

	var got []string
	deskSet := make(map[string]struct{}, len(st.Desks))
	for _, key := range st.Desks {
		deskSet[key] = struct{}{}
	}
	for key, name := range st.Assignments {
		if name == "" {
			t.Errorf("shuffle must not write empty names, found one at %s", key)
		}
		if _, ok := deskSet[key]; !ok {
			t.Errorf("shuffle placed %q on a non-desk cell %s", name, key)
		}
		got = append(got, name)
	}
	sort.Strings(got)
	sortedWant := append([]string(nil), want...)
	sort.Strings(sortedWant)
	if len(got) != len(sortedWant) {
		t.Fatalf("roster size changed: got %d names, want %d", len(got), len(sortedWant))
	}
	for i := range got {
		if got[i] != sortedWant[i] {
			t.Fatalf("roster changed under shuffle:\n got %v\nwant %v", got, sortedWant)
		}
	}
}

func TestShuffleBumpsVersion(t *testing.T) {
	chart := NewChart()
	chart.SetAssignment(Coord{Row: 1, Col: 2}, "Ana Silva")
	before := chart.Version()

	chart.Shuffle(rand.New(rand.NewPCG(1, 2)))
	if chart.Version() <= before {
		t.Errorf("shuffle must bump the version: %d -> %d", before, chart.Version())
	}
}
