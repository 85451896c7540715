package domain

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// HandoverPolicy orders the HandoverItem vocabulary from most to least
// urgent. When one subject implies several handover concerns only the
// first one in Priority is kept.
type HandoverPolicy struct {
	Priority []string `yaml:"priority"`
}

func DefaultHandoverPolicy() HandoverPolicy {
	return HandoverPolicy{Priority: []string{
		"Housing Payment",
		"TWIMC Letter",
		"Housing Updates",
		"Pending Tuition Fees",
		"Salary Issue",
		"Nothing",
	}}
}

func LoadHandoverPolicy(path string) (HandoverPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return HandoverPolicy{}, fmt.Errorf("read handover policy: %w", err)
	}
	var p HandoverPolicy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return HandoverPolicy{}, fmt.Errorf("parse handover policy yaml: %w", err)
	}
	for i, item := range p.Priority {
		p.Priority[i] = strings.TrimSpace(item)
	}
	if err := p.Validate(); err != nil {
		return HandoverPolicy{}, err
	}
	return p, nil
}

// Validate requires Priority to be a permutation of HandoverItems.
func (p HandoverPolicy) Validate() error {
	if len(p.Priority) != len(HandoverItems) {
		return fmt.Errorf("handover policy must rank all %d handover items, got %d", len(HandoverItems), len(p.Priority))
	}
	seen := make(map[string]bool, len(p.Priority))
	for _, item := range p.Priority {
		canon, ok := Canonical(HandoverItems, item)
		if !ok || canon != item {
			return fmt.Errorf("handover policy: unknown handover item %q", item)
		}
		if seen[item] {
			return fmt.Errorf("handover policy: duplicate handover item %q", item)
		}
		seen[item] = true
	}
	return nil
}

// Rank returns the position of item in the priority table, or -1.
func (p HandoverPolicy) Rank(item string) int {
	for i, entry := range p.Priority {
		if strings.EqualFold(entry, strings.TrimSpace(item)) {
			return i
		}
	}
	return -1
}

// Resolve picks the most urgent handover item mentioned in value. Values
// naming a single item, or none at all, are returned canonicalised or
// unchanged.
func (p HandoverPolicy) Resolve(value string) string {
	canon, ok := Canonical(HandoverItems, value)
	if ok {
		return canon
	}

	lower := strings.ToLower(value)
	for _, entry := range p.Priority {
		if strings.Contains(lower, strings.ToLower(entry)) {
			return entry
		}
	}
	return canon
}

// String renders the table as "A > B > C" for the prompt.
func (p HandoverPolicy) String() string {
	return strings.Join(p.Priority, " > ")
}
