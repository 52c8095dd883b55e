// Package classify provides the default damage-relevance classifier. The
// enrichment core only depends on the domain.Classifier interface; this
// keyword matcher ships so the binary runs standalone, and deployments can
// swap in a richer model without touching the core.
package classify

import (
	"strings"

	"github.com/couchcryptid/hazard-alert-enrichment/internal/domain"
)

// DefaultKeywords covers the hazard families that produce physical property
// damage worth following up on.
var DefaultKeywords = []string{
	"tornado",
	"hail",
	"hurricane",
	"tropical storm",
	"severe thunderstorm",
	"high wind",
	"flash flood",
	"flood",
	"winter storm",
	"ice storm",
	"wildfire",
	"fire warning",
}

// Keyword matches hazard keywords against an alert's event name and prose.
type Keyword struct {
	keywords []string
}

// NewKeyword creates a classifier over the given keywords, lowercased. An
// empty list selects DefaultKeywords.
func NewKeyword(keywords []string) *Keyword {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			lowered = append(lowered, k)
		}
	}
	return &Keyword{keywords: lowered}
}

// Relevant reports whether any keyword occurs in the alert's event name,
// headline, or description.
func (c *Keyword) Relevant(a domain.AlertRecord) bool {
	text := strings.ToLower(a.Event + " " + a.Headline + " " + a.Description)
	for _, k := range c.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
