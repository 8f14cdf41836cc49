package precedence

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRuleTableOrdering(t *testing.T) {
	table := DefaultRuleTable()

	higher := []string{ProductEmployeeLoan, ProductTWLoyalty, ProductTopUp, ProductPreapproved, ProductProspect}
	for i := 1; i < len(higher); i++ {
		prev, _ := table.Priority(higher[i-1])
		cur, _ := table.Priority(higher[i])
		if prev <= cur {
			t.Fatalf("%s should outrank %s (%d vs %d)", higher[i-1], higher[i], prev, cur)
		}
	}

	insta, _ := table.Priority(ProductInsta)
	eagg, _ := table.Priority(ProductEAggregator)
	if insta != eagg {
		t.Fatalf("Insta and E-aggregator must tie, got %d vs %d", insta, eagg)
	}

	if _, known := table.Priority("Gold Loan"); known {
		t.Fatalf("unexpected product in default table")
	}
}

func TestRuleTableCaseInsensitiveLookup(t *testing.T) {
	table := DefaultRuleTable()
	want, _ := table.Priority(ProductEmployeeLoan)
	got, ok := table.Priority("  employee loan ")
	if !ok || got != want {
		t.Fatalf("case-insensitive lookup failed: got %d ok=%v want %d", got, ok, want)
	}
}

func TestNewRuleTableRejectsBadInput(t *testing.T) {
	if _, err := NewRuleTable(nil); err == nil {
		t.Fatalf("empty table accepted")
	}
	if _, err := NewRuleTable(map[string]int{"": 10}); err == nil {
		t.Fatalf("empty product name accepted")
	}
	if _, err := NewRuleTable(map[string]int{"Insta": 0}); err == nil {
		t.Fatalf("zero priority accepted")
	}
	if _, err := NewRuleTable(map[string]int{"Insta": 10, "insta ": 20}); err == nil {
		t.Fatalf("duplicate product (case variant) accepted")
	}
}

func TestLoadRuleTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `products:
  - product: Employee Loan
    priority: 40
  - product: Insta
    priority: 10
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	table, err := LoadRuleTable(path)
	if err != nil {
		t.Fatalf("LoadRuleTable: %v", err)
	}
	if prio, ok := table.Priority(ProductEmployeeLoan); !ok || prio != 40 {
		t.Fatalf("override not applied: %d %v", prio, ok)
	}
	// The file replaces the default table entirely.
	if _, ok := table.Priority(ProductProspect); ok {
		t.Fatalf("products absent from the file should be unknown")
	}
}

func TestLoadRuleTableRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `products:
  - product: Insta
    priority: 10
  - product: Insta
    priority: 20
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	if _, err := LoadRuleTable(path); err == nil {
		t.Fatalf("duplicate product accepted")
	}
}

func TestProductsSortedByPriority(t *testing.T) {
	table := DefaultRuleTable()
	products := table.Products()
	if len(products) != 7 {
		t.Fatalf("expected 7 products, got %d", len(products))
	}
	if products[0] != ProductEmployeeLoan {
		t.Fatalf("expected %s first, got %s", ProductEmployeeLoan, products[0])
	}
	last2 := map[string]bool{products[5]: true, products[6]: true}
	if !last2[ProductInsta] || !last2[ProductEAggregator] {
		t.Fatalf("expected Insta/E-aggregator last, got %v", products)
	}
}
