package gateway

import (
	"encoding/json"
	"strings"

	"koda/internal/logging"
)

// Response markers. The closing marker appears in two variants in the
// wild; both are accepted.
const (
	responseStart = "<RESPONSE_START>"
	responseEnd   = "<RESPONSE_END>"
	// alternate closing form some models emit
	responseEndAlt = "</RESPONSE_END>"
)

// ParseResponse decodes raw model output. The structured path extracts
// the JSON payload between the response markers; any failure along the
// way (missing markers, markers out of order, malformed JSON) degrades
// to a narrative-only response carrying the full raw text. It never
// returns an error.
func ParseResponse(raw string) Response {
	payload, ok := extractPayload(raw)
	if !ok {
		return Response{Narrative: raw}
	}

	var wire wirePayload
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		logging.Debug("structured response payload rejected", "error", err)
		return Response{Narrative: raw}
	}

	questions := filterQuestions(wire.Questions)
	return Response{
		Narrative:         wire.Chat,
		Actions:           wire.Actions,
		Questions:         questions,
		RequiresUserInput: len(questions) > 0,
	}
}

// extractPayload locates the marker-delimited JSON body and normalizes
// it to a single line. Returns false when no well-formed payload exists.
func extractPayload(raw string) (string, bool) {
	start := strings.Index(raw, responseStart)
	if start < 0 {
		return "", false
	}

	// The earliest end marker in the whole text, not just after the
	// start marker. An end marker preceding the start marker means the
	// reply is garbled and the pair is treated as out of order.
	end := strings.Index(raw, responseEnd)
	if alt := strings.Index(raw, responseEndAlt); alt >= 0 && (end < 0 || alt < end) {
		end = alt
	}
	if end < 0 || end < start {
		return "", false
	}

	payload := strings.Join(strings.Fields(raw[start+len(responseStart):end]), " ")
	if !strings.HasPrefix(payload, "{") || !strings.HasSuffix(payload, "}") {
		return "", false
	}
	return payload, true
}

// filterQuestions drops entries that are unusable as prompts to the
// user: blank id, text, or type, or the explicit "none" type.
func filterQuestions(questions []Question) []Question {
	var kept []Question
	for _, q := range questions {
		if q.ID == "" || q.Text == "" || q.Type == "" || q.Type == "none" {
			continue
		}
		kept = append(kept, q)
	}
	return kept
}
