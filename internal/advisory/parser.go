package advisory

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNoAssessment is returned when the output contains none of the
// expected lines.
var ErrNoAssessment = errors.New("no assessment in advisor output")

// ParseAssessment extracts the RISK, RATIONALE, CURRENT_COST and
// DELAYED_COST lines from advisor output. Lines may appear in any order and
// surrounding chatter is ignored. Unparsable numbers are left unset.
func ParseAssessment(output string) (*Assessment, error) {
	var a Assessment
	found := false

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.Trim(strings.TrimSpace(line), "*`")
		key, val, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(strings.Trim(val, "*` "))

		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "RISK":
			if v, ok := parseNumber(val); ok {
				v = clampRisk(v)
				a.CascadeRisk = &v
				found = true
			}
		case "RATIONALE":
			if val != "" {
				a.Rationale = val
				found = true
			}
		case "CURRENT_COST":
			if v, ok := parseNumber(val); ok {
				a.CurrentCost = &v
				found = true
			}
		case "DELAYED_COST":
			if v, ok := parseNumber(val); ok {
				a.DelayedCost = &v
				found = true
			}
		}
	}

	if !found {
		return nil, ErrNoAssessment
	}
	return &a, nil
}

// parseNumber reads the leading number of s, tolerating "$1,200",
// "7/10" and "350 USD".
func parseNumber(s string) (float64, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	s = strings.ReplaceAll(s, ",", "")
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.' || (end == 0 && s[end] == '-')) {
		end++
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
