package sepm

import (
	"net/http"
	"regexp"
	"strings"
)

const (
	ReasonFingerprintListMissing = "fingerprint list does not exist"
	ReasonHashAlreadyPresent     = "hash already present in fingerprint list"
	ReasonDuplicateHash          = "duplicate hash add attempt"
	ReasonUncaught               = "uncaught transport error"
)

// Classification is the derived meaning of a non-2xx reply.
type Classification struct {
	StatusCode int
	Reason     string
	// Known is false for statuses that fell through the rule table.
	Known bool
}

type classRule struct {
	status  int
	methods []string
	pattern *regexp.Regexp
	reason  string
}

func (r classRule) matches(status int, method, rawURL string) bool {
	if r.status != status {
		return false
	}
	allowed := false
	for _, m := range r.methods {
		if m == method {
			allowed = true
			break
		}
	}
	return allowed && r.pattern.MatchString(rawURL)
}

// Classifier maps (status, method, url) to a Classification using an ordered
// rule table; the first matching rule wins.
type Classifier struct {
	rules []classRule
}

// NewClassifier builds the rule table for an API rooted at basePath.
func NewClassifier(basePath string) *Classifier {
	base := regexp.QuoteMeta(strings.TrimRight(basePath, "/"))
	fingerprints := regexp.MustCompile(`^https://.*` + base + `/policy-objects/fingerprints.*$`)
	lockdown := regexp.MustCompile(`^https://.*` + base + `/groups/.*/system-lockdown/fingerprints/.*$`)

	return &Classifier{rules: []classRule{
		{
			status:  http.StatusGone,
			methods: []string{http.MethodGet, http.MethodDelete},
			pattern: fingerprints,
			reason:  ReasonFingerprintListMissing,
		},
		{
			status:  http.StatusBadRequest,
			methods: []string{http.MethodPut},
			pattern: lockdown,
			reason:  ReasonHashAlreadyPresent,
		},
		{
			status:  http.StatusConflict,
			methods: []string{http.MethodPost},
			pattern: fingerprints,
			reason:  ReasonDuplicateHash,
		},
	}}
}

// Classify evaluates the rule table against a failed call.
func (c *Classifier) Classify(status int, method, rawURL string) Classification {
	method = strings.ToUpper(method)
	for _, r := range c.rules {
		if r.matches(status, method, rawURL) {
			return Classification{StatusCode: status, Reason: r.reason, Known: true}
		}
	}
	return Classification{StatusCode: status, Reason: ReasonUncaught}
}
