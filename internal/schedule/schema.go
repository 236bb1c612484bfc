package schedule

import (
	"google.golang.org/genai"

	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// ResponseSchema is the structured-output schema the model must follow.
func ResponseSchema() *genai.Schema {
	types := make([]string, 0, len(enums.ShiftTypes))
	for _, t := range enums.ShiftTypes {
		types = append(types, string(t))
	}
	clock := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc, Pattern: `^\d{2}:\d{2}$`}
	}
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"date":       {Type: genai.TypeString, Description: "Calendar day, YYYY-MM-DD", Format: "date"},
				"type":       {Type: genai.TypeString, Enum: types},
				"userId":     {Type: genai.TypeString},
				"lunchStart": clock("HH:MM"),
				"lunchEnd":   clock("HH:MM"),
				"breakStart": clock("HH:MM"),
				"breakEnd":   clock("HH:MM"),
			},
			Required:         []string{"date", "type", "userId", "lunchStart", "lunchEnd", "breakStart", "breakEnd"},
			PropertyOrdering: []string{"date", "type", "userId", "lunchStart", "lunchEnd", "breakStart", "breakEnd"},
		},
	}
}
