package advisory

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the assessment request. The advisor is asked to
// answer in the line format ParseAssessment reads.
func BuildPrompt(req Request) string {
	var parts []string

	parts = append(parts, "# Role: Property Maintenance Estimator\n"+
		"You assess residential maintenance issues for a property owner. "+
		"Estimate how likely the issue is to cause damage to other systems if left alone, "+
		"and what it costs to fix now versus after a year of delay.")

	var issue strings.Builder
	issue.WriteString("## Issue\n")
	issue.WriteString(fmt.Sprintf("**Title:** %s\n", req.Title))
	if req.SystemType != "" {
		issue.WriteString(fmt.Sprintf("**System:** %s\n", req.SystemType))
	}
	if req.Description != "" {
		issue.WriteString(fmt.Sprintf("\n%s\n", req.Description))
	}
	parts = append(parts, issue.String())

	parts = append(parts, `## Response format
Answer with exactly these lines and nothing else:
RISK: <cascade risk score from 0 to 10>
RATIONALE: <one sentence explaining the risk>
CURRENT_COST: <estimated cost in USD to fix now>
DELAYED_COST: <estimated cost in USD if delayed a year>`)

	return strings.Join(parts, "\n\n")
}
