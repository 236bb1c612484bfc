package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse marks model output that is not a JSON array of shifts.
var ErrMalformedResponse = errors.New("malformed model response")

// ParseProposals decodes the model's JSON array. Markdown code fences around
// the array are tolerated.
func ParseProposals(text string) ([]Proposal, error) {
	body := strings.TrimSpace(text)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
		body = strings.TrimSpace(body)
	}
	if body == "" {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	var proposals []Proposal
	if err := json.Unmarshal([]byte(body), &proposals); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	for i := range proposals {
		p := &proposals[i]
		p.Date = strings.TrimSpace(p.Date)
		p.UserID = strings.TrimSpace(p.UserID)
	}
	return proposals, nil
}
