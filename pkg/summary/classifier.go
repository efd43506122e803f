package summary

import (
	"fmt"
	"strings"

	"github.com/ritzau/graph-explorer/pkg/model"
)

// MaxCategories bounds the number of classification rules
const MaxCategories = 7

// Predicate decides whether a node belongs to a category. Both arguments are
// already lowercased.
type Predicate func(name, kind string) bool

// Rule pairs a category label with the predicate that selects its members
type Rule struct {
	Label string
	Match Predicate
}

// Keywords matches nodes whose name or type contains any of the words
func Keywords(words ...string) Predicate {
	lowered := make([]string, len(words))
	for i, w := range words {
		lowered[i] = strings.ToLower(w)
	}
	return func(name, kind string) bool {
		for _, w := range lowered {
			if w == "" {
				continue
			}
			if strings.Contains(name, w) || strings.Contains(kind, w) {
				return true
			}
		}
		return false
	}
}

// KeywordRule builds a rule matching any of the keywords
func KeywordRule(label string, words ...string) Rule {
	return Rule{Label: label, Match: Keywords(words...)}
}

// DefaultRules is the built-in cascade. Order matters: the first matching
// rule wins, so "Settlement Order Placement" is an order journey, not a
// payment.
func DefaultRules() []Rule {
	return []Rule{
		KeywordRule("Customer & Account Management",
			"customer", "client", "account", "kyc", "onboarding", "profile", "contact"),
		KeywordRule("Order Journey & Processes",
			"order", "journey", "process", "workflow", "request", "fulfil", "procedure"),
		KeywordRule("Payments & Settlement",
			"payment", "settlement", "invoice", "billing", "transaction", "fund", "clearing", "refund"),
		KeywordRule("Risk & Compliance",
			"risk", "compliance", "regulat", "audit", "policy", "fraud", "control", "sanction"),
		KeywordRule("Products & Services",
			"product", "service", "offering", "pricing", "loan", "card", "mortgage"),
		KeywordRule("Systems & Channels",
			"system", "platform", "application", "api", "channel", "portal", "database", "tool"),
		KeywordRule("People & Organisation",
			"team", "department", "role", "manager", "person", "employee", "staff", "organisation", "organization"),
	}
}

// Classifier assigns nodes to categories with an ordered rule cascade
type Classifier struct {
	rules []Rule
}

// NewClassifier validates rules and returns a classifier applying them in order
func NewClassifier(rules []Rule) (*Classifier, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("classifier needs at least one rule")
	}
	if len(rules) > MaxCategories {
		return nil, fmt.Errorf("classifier has %d rules, at most %d allowed", len(rules), MaxCategories)
	}
	seen := make(map[string]bool)
	for i, r := range rules {
		if r.Label == "" {
			return nil, fmt.Errorf("rule %d has no label", i)
		}
		if r.Match == nil {
			return nil, fmt.Errorf("rule %q has no predicate", r.Label)
		}
		if seen[r.Label] {
			return nil, fmt.Errorf("duplicate category %q", r.Label)
		}
		seen[r.Label] = true
	}
	return &Classifier{rules: append([]Rule(nil), rules...)}, nil
}

// DefaultClassifier returns a classifier over DefaultRules
func DefaultClassifier() *Classifier {
	c, err := NewClassifier(DefaultRules())
	if err != nil {
		panic(err)
	}
	return c
}

// Labels returns the category labels in cascade order
func (c *Classifier) Labels() []string {
	labels := make([]string, len(c.rules))
	for i, r := range c.rules {
		labels[i] = r.Label
	}
	return labels
}

// Classify returns the label of the first rule matching node
func (c *Classifier) Classify(node model.Node) (string, bool) {
	name := strings.ToLower(node.Name)
	kind := strings.ToLower(node.Type)
	for _, r := range c.rules {
		if r.Match(name, kind) {
			return r.Label, true
		}
	}
	return "", false
}
