// Package trigger decides whether a final transcript warrants a
// generated response.
package trigger

import "strings"

// DefaultIndicators is the stock question-indicator set. Deployments
// tune this via configuration; matching is case-insensitive substring
// containment.
var DefaultIndicators = []string{
	"?", "what", "how", "why", "when", "where", "who", "can you", "could you",
}

// Policy is a stateless response trigger.
type Policy struct {
	indicators []string
}

// NewPolicy creates a policy over the given indicator set; nil or empty
// falls back to DefaultIndicators.
func NewPolicy(indicators []string) *Policy {
	if len(indicators) == 0 {
		indicators = DefaultIndicators
	}
	return &Policy{indicators: indicators}
}

// ShouldRespond reports whether the final transcript looks like a
// question or request.
func (p *Policy) ShouldRespond(finalTranscript string) bool {
	lower := strings.ToLower(finalTranscript)
	for _, ind := range p.indicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}
