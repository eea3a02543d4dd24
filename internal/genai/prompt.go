package genai

import (
	"encoding/json"
	"fmt"

	"seatplan/api/internal/seating"
)

const systemInstruction = `You are a classroom seating assistant. The teacher pastes a class roster and you merge it into the current seating chart.

Rules:
1. Keep students who are already seated where they are unless the roster says otherwise.
2. Students flagged IEP, 504, or ELL sit in row 0 or row 1, near the front of the room.
3. If there are more students than desks, invent new "row-col" coordinates beyond the current grid.
4. Reply with JSON only, no prose and no markdown, in exactly this shape:
{"assignments":{"<row>-<col>":"<student name>"},"metadata":{"<row>-<col>":{"isPriority":true,"type":"IEP"}}}
"type" must be "IEP", "504", or "ELL" when present. Mention only the coordinates you are seating or flagging.`

// buildUserPrompt packs the chart snapshot and the pasted roster into the
// user turn. The snapshot travels as JSON so coordinates survive verbatim.
func buildUserPrompt(state seating.State, rosterText string) (string, error) {
	snapshot := map[string]any{
		"gridSize":       map[string]int{"rows": state.Rows, "cols": state.Cols},
		"activeDesks":    state.Desks,
		"currentSeating": state.Assignments,
		"metadata":       state.Metadata,
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("encode chart snapshot: %w", err)
	}
	return "Current chart:\n" + string(data) + "\n\nClass roster:\n" + rosterText, nil
}
