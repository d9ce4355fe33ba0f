package rules

import "sync"

// Registry holds the set of known rules, keyed by ID. Registration happens
// at process start; after that the registry is read-only and safe for
// concurrent lookups.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]*Rule
	order []*Rule
}

// NewRegistry creates an empty rule registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]*Rule),
	}
}

// Register adds a rule to the registry. It fails with DuplicateRuleError if
// a rule with the same ID is already present.
func (r *Registry) Register(rule *Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[rule.ID]; exists {
		return &DuplicateRuleError{ID: rule.ID}
	}

	r.byID[rule.ID] = rule
	r.order = append(r.order, rule)
	return nil
}

// Get returns the rule with the given ID, or UnknownRuleError.
func (r *Registry) Get(id string) (*Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.byID[id]
	if !ok {
		return nil, &UnknownRuleError{ID: id}
	}
	return rule, nil
}

// List returns all registered rules in insertion order.
func (r *Registry) List() []*Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Rule, len(r.order))
	copy(out, r.order)
	return out
}
