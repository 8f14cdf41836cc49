package precedence

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Known product types. Priorities come from the business precedence
// statements: Employee Loan > TW Loyalty > Top-up > Preapproved > Prospect >
// Insta = E-aggregator. Insta and E-aggregator deliberately tie.
const (
	ProductEmployeeLoan = "Employee Loan"
	ProductTWLoyalty    = "TW Loyalty"
	ProductTopUp        = "Top-up"
	ProductPreapproved  = "Preapproved"
	ProductProspect     = "Prospect"
	ProductInsta        = "Insta"
	ProductEAggregator  = "E-aggregator"
)

// RuleTable maps product types to priority integers. Higher wins.
// Lookup is case-insensitive on trimmed product names.
type RuleTable struct {
	priorities map[string]int
	names      map[string]string
}

func defaultPriorities() map[string]int {
	return map[string]int{
		ProductEmployeeLoan: 100,
		ProductTWLoyalty:    90,
		ProductTopUp:        80,
		ProductPreapproved:  70,
		ProductProspect:     60,
		ProductInsta:        50,
		ProductEAggregator:  50,
	}
}

func DefaultRuleTable() *RuleTable {
	t, err := NewRuleTable(defaultPriorities())
	if err != nil {
		panic(err)
	}
	return t
}

func NewRuleTable(priorities map[string]int) (*RuleTable, error) {
	if len(priorities) == 0 {
		return nil, fmt.Errorf("rule table is empty")
	}
	t := &RuleTable{
		priorities: make(map[string]int, len(priorities)),
		names:      make(map[string]string, len(priorities)),
	}
	for name, prio := range priorities {
		canonical := strings.TrimSpace(name)
		if canonical == "" {
			return nil, fmt.Errorf("rule table has an empty product name")
		}
		if prio <= 0 {
			return nil, fmt.Errorf("product %q has non-positive priority %d", canonical, prio)
		}
		key := canonicalKey(canonical)
		if _, exists := t.priorities[key]; exists {
			return nil, fmt.Errorf("product %q appears more than once", canonical)
		}
		t.priorities[key] = prio
		t.names[key] = canonical
	}
	return t, nil
}

func canonicalKey(product string) string {
	return strings.ToLower(strings.TrimSpace(product))
}

// Priority returns the priority for a product type and whether it is known.
func (t *RuleTable) Priority(product string) (int, bool) {
	prio, ok := t.priorities[canonicalKey(product)]
	return prio, ok
}

// Products lists the known product names, highest priority first.
func (t *RuleTable) Products() []string {
	out := make([]string, 0, len(t.names))
	for key := range t.names {
		out = append(out, t.names[key])
	}
	sort.Slice(out, func(i, j int) bool {
		pi, _ := t.Priority(out[i])
		pj, _ := t.Priority(out[j])
		if pi != pj {
			return pi > pj
		}
		return out[i] < out[j]
	})
	return out
}

type ruleFile struct {
	Products []struct {
		Product  string `yaml:"product"`
		Priority int    `yaml:"priority"`
	} `yaml:"products"`
}

// LoadRuleTable reads a YAML priority table. The file replaces the default
// table entirely so the effective rules are always in one place.
func LoadRuleTable(path string) (*RuleTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule table: %w", err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("parse rule table: %w", err)
	}
	priorities := make(map[string]int, len(rf.Products))
	for _, entry := range rf.Products {
		name := strings.TrimSpace(entry.Product)
		if name == "" {
			return nil, fmt.Errorf("rule table entry with empty product in %s", path)
		}
		if _, dup := priorities[name]; dup {
			return nil, fmt.Errorf("product %q appears more than once in %s", name, path)
		}
		priorities[name] = entry.Priority
	}
	return NewRuleTable(priorities)
}
