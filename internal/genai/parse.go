package genai

import (
	"encoding/json"
	"fmt"
	"strings"

	"seatplan/api/internal/seating"
)

type proposalWire struct {
	Assignments map[string]string            `json:"assignments"`
	Metadata    map[string]seating.SeatFlags `json:"metadata"`
}

// ParseProposal turns model text into a seating proposal. Markdown code
// fences around the JSON are tolerated and stripped; anything else that does
// not match the contract is a FormatError.
func ParseProposal(text string) (seating.Proposal, error) {
	cleaned := stripFences(text)
	if cleaned == "" {
		return seating.Proposal{}, &FormatError{Reason: "empty response text"}
	}

	var wire proposalWire
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return seating.Proposal{}, &FormatError{Reason: err.Error()}
	}

	proposal := seating.Proposal{
		Assignments: make(map[seating.Coord]string, len(wire.Assignments)),
		Flags:       make(map[seating.Coord]seating.SeatFlags, len(wire.Metadata)),
	}
	for key, name := range wire.Assignments {
		coord, err := seating.ParseKey(key)
		if err != nil {
			return seating.Proposal{}, &FormatError{Reason: fmt.Sprintf("bad assignment key %q", key)}
		}
		proposal.Assignments[coord] = name
	}
	for key, flags := range wire.Metadata {
		coord, err := seating.ParseKey(key)
		if err != nil {
			return seating.Proposal{}, &FormatError{Reason: fmt.Sprintf("bad metadata key %q", key)}
		}
		if flags.Type != "" && !seating.ValidFlagType(flags.Type) {
			return seating.Proposal{}, &FormatError{Reason: fmt.Sprintf("unknown flag type %q", flags.Type)}
		}
		proposal.Flags[coord] = flags
	}
	return proposal, nil
}

// stripFences removes a markdown code fence wrapper if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
