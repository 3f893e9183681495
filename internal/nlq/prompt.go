package nlq

import (
	"encoding/json"
	"fmt"
	"strings"

	"dataagentjp.io/querycore/common/llm"
	"dataagentjp.io/querycore/internal/catalog"
	"dataagentjp.io/querycore/internal/domain"
)

// replyShape is what the model must emit. Params stay loosely typed in
// the schema; decoding tightens them into domain values.
type replyShape struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Params     map[string]any `json:"params"`
}

var replySchema = func() string {
	schema, err := json.Marshal(llm.GenerateSchema[replyShape]())
	if err != nil {
		panic(fmt.Sprintf("reflect reply schema: %v", err))
	}
	return string(schema)
}()

// buildPrompt assembles the compact classification prompt: allowed
// intents with their mandatory parameters, the precategorizer's table
// hint, the reply schema, and the question itself.
func buildPrompt(intents []catalog.Intent, hint string, nlq string) string {
	var b strings.Builder

	b.WriteString("You classify ERP questions into query intents. Reply with a single JSON object and nothing else.\n\n")
	b.WriteString("Allowed intents:\n")
	for _, intent := range intents {
		b.WriteString("- ")
		b.WriteString(intent.Name)
		if intent.Description != "" {
			b.WriteString(": ")
			b.WriteString(intent.Description)
		}
		if len(intent.RequiredFilters) > 0 {
			keys := make([]string, len(intent.RequiredFilters))
			for i, concept := range intent.RequiredFilters {
				keys[i] = domain.ParamForConcept(concept)
			}
			b.WriteString(" (required params: ")
			b.WriteString(strings.Join(keys, ", "))
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	b.WriteString("- " + IntentUnknown + ": use this with confidence 0 when no intent fits\n")

	if hint != "" {
		b.WriteString("\nTable hint: ")
		b.WriteString(hint)
		b.WriteString("\n")
	}

	b.WriteString("\nParam keys are upper snake case, e.g. ITEM_NO, WAREHOUSE, WORKSTATION, PURCHASE_ORDER_NO, WORK_ORDER_NO, TIME_RANGE.\n")
	b.WriteString(`TIME_RANGE is {"type":"YEAR","year":2026} or {"type":"MONTH","year":2026,"month":1}.` + "\n")

	b.WriteString("\nReply JSON schema:\n")
	b.WriteString(replySchema)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(nlq)
	b.WriteString("\nJSON:")

	return b.String()
}
