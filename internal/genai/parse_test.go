package genai

import (
	"errors"
	"testing"

	"seatplan/api/internal/seating"
)

func TestParseProposal(t *testing.T) {
	text := `{"assignments":{"0-1":"Maria Lopez","2-3":""},"metadata":{"0-1":{"isPriority":true,"type":"IEP"}}}`
	proposal, err := ParseProposal(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := proposal.Assignments[seating.Coord{Row: 0, Col: 1}]; got != "Maria Lopez" {
		t.Errorf("assignment = %q", got)
	}
	if got, ok := proposal.Assignments[seating.Coord{Row: 2, Col: 3}]; !ok || got != "" {
		t.Errorf("empty assignment should parse: %q ok=%v", got, ok)
	}
	flags := proposal.Flags[seating.Coord{Row: 0, Col: 1}]
	if !flags.IsPriority || flags.Type != seating.FlagIEP {
		t.Errorf("flags = %+v", flags)
	}
}

func TestParseProposalStripsFences(t *testing.T) {
	cases := []string{
		"```json\n{\"assignments\":{\"1-1\":\"Ben Zhao\"}}\n```",
		"```\n{\"assignments\":{\"1-1\":\"Ben Zhao\"}}\n```",
		"  {\"assignments\":{\"1-1\":\"Ben Zhao\"}}  ",
	}
	for _, text := range cases {
		proposal, err := ParseProposal(text)
		if err != nil {
			t.Errorf("ParseProposal(%q) error: %v", text, err)
			continue
		}
		if proposal.Assignments[seating.Coord{Row: 1, Col: 1}] != "Ben Zhao" {
			t.Errorf("ParseProposal(%q) lost the assignment", text)
		}
	}
}

func TestParseProposalToleratesMissingSections(t *testing.T) {
	proposal, err := ParseProposal(`{"assignments":{"0-0":"Ana Silva"}}`)
	if err != nil {
		t.Fatalf("assignments-only reply should parse: %v", err)
	}
	if len(proposal.Flags) != 0 {
		t.Errorf("expected no flags, got %v", proposal.Flags)
	}

	proposal, err = ParseProposal(`{"metadata":{"0-0":{"isPriority":true}}}`)
	if err != nil {
		t.Fatalf("metadata-only reply should parse: %v", err)
	}
	if len(proposal.Assignments) != 0 {
		t.Errorf("expected no assignments, got %v", proposal.Assignments)
	}
}

func TestParseProposalFormatFailures(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "fences only", text: "```json\n```"},
		{name: "prose", text: "Sure! Here is your seating chart."},
		{name: "top-level array", text: `[{"0-0":"Ana Silva"}]`},
		{name: "assignments not an object", text: `{"assignments":"0-0"}`},
		{name: "name not a string", text: `{"assignments":{"0-0":42}}`},
		{name: "bad coordinate key", text: `{"assignments":{"zero-zero":"Ana Silva"}}`},
		{name: "negative coordinate", text: `{"assignments":{"-1-2":"Ana Silva"}}`},
		{name: "bad flag type", text: `{"metadata":{"0-0":{"isPriority":true,"type":"GT"}}}`},
		{name: "priority not a bool", text: `{"metadata":{"0-0":{"isPriority":"yes"}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseProposal(tc.text)
			var formatErr *FormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("expected a FormatError, got %v", err)
			}
		})
	}
}
