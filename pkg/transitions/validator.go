// Package transitions validates document status changes against static per-type tables.
package transitions

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/dukex/supplyflow/pkg/models"
)

// Table is the lifecycle of one document type: every status it knows maps to
// the statuses it may move to. Terminal statuses map to an empty list.
type Table struct {
	Initial     string              `json:"initial"     yaml:"initial"`
	Transitions map[string][]string `json:"transitions" yaml:"transitions"`
}

// Validate checks the structural invariants of a table: a declared initial status,
// at least one terminal status, no undeclared targets and every status reachable
// from the initial one.
func (t Table) Validate() error {
	if t.Initial == "" {
		return fmt.Errorf("%w: initial status is required", ErrInvalidTable)
	}

	if _, ok := t.Transitions[t.Initial]; !ok {
		return fmt.Errorf("%w: initial status %q is not declared", ErrInvalidTable, t.Initial)
	}

	terminals := 0

	for from, targets := range t.Transitions {
		if len(targets) == 0 {
			terminals++
		}

		for _, to := range targets {
			if _, ok := t.Transitions[to]; !ok {
				return fmt.Errorf("%w: status %q targets undeclared status %q", ErrInvalidTable, from, to)
			}
		}
	}

	if terminals == 0 {
		return fmt.Errorf("%w: no terminal status", ErrInvalidTable)
	}

	reachable := t.Reachable()
	for status := range t.Transitions {
		if !reachable[status] {
			return fmt.Errorf("%w: status %q is unreachable from %q", ErrInvalidTable, status, t.Initial)
		}
	}

	return nil
}

// Reachable returns the set of statuses reachable from the initial status, itself included.
func (t Table) Reachable() map[string]bool {
	seen := map[string]bool{t.Initial: true}
	queue := []string{t.Initial}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range t.Transitions[current] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	return seen
}

// Terminals returns the sorted statuses without outgoing transitions.
func (t Table) Terminals() []string {
	var out []string

	for status, targets := range t.Transitions {
		if len(targets) == 0 {
			out = append(out, status)
		}
	}

	sort.Strings(out)

	return out
}

func (t Table) clone() Table {
	c := Table{Initial: t.Initial, Transitions: make(map[string][]string, len(t.Transitions))}
	for from, targets := range t.Transitions {
		c.Transitions[from] = slices.Clone(targets)
	}

	return c
}

// Validator answers transition questions for every configured document type.
// It is immutable after construction and safe for concurrent use.
type Validator struct {
	tables  map[models.DocumentType]Table
	allowed map[models.DocumentType]map[string]map[string]bool
}

// NewValidator validates and indexes the given tables.
func NewValidator(tables map[models.DocumentType]Table) (*Validator, error) {
	v := &Validator{
		tables:  make(map[models.DocumentType]Table, len(tables)),
		allowed: make(map[models.DocumentType]map[string]map[string]bool, len(tables)),
	}

	for docType, table := range tables {
		err := table.Validate()
		if err != nil {
			return nil, fmt.Errorf("document type %s: %w", docType, err)
		}

		table = table.clone()
		v.tables[docType] = table

		index := make(map[string]map[string]bool, len(table.Transitions))
		for from, targets := range table.Transitions {
			index[from] = make(map[string]bool, len(targets))
			for _, to := range targets {
				index[from][to] = true
			}
		}

		v.allowed[docType] = index
	}

	return v, nil
}

// Default returns a validator over the built-in document types.
func Default() *Validator {
	v, err := NewValidator(builtinTables)
	if err != nil {
		panic(fmt.Errorf("built-in transition tables are invalid: %w", err))
	}

	return v
}

// BuiltinTables returns a copy of the built-in tables.
func BuiltinTables() map[models.DocumentType]Table {
	out := make(map[models.DocumentType]Table, len(builtinTables))
	for docType, table := range builtinTables {
		out[docType] = table.clone()
	}

	return out
}

// AssertTransition succeeds silently when to is an allowed next status of from.
// Equal statuses are only valid when the table lists them explicitly.
func (v *Validator) AssertTransition(docType models.DocumentType, from, to string) error {
	index, ok := v.allowed[docType]
	if !ok {
		return &InvalidTransitionError{DocumentType: docType, From: from, To: to, Err: ErrUnknownDocumentType}
	}

	if !index[from][to] {
		return &InvalidTransitionError{DocumentType: docType, From: from, To: to}
	}

	return nil
}

func (v *Validator) CanTransition(docType models.DocumentType, from, to string) bool {
	return v.AssertTransition(docType, from, to) == nil
}

// AllowedNext returns the statuses reachable in one step from the given status.
func (v *Validator) AllowedNext(docType models.DocumentType, from string) []string {
	table, ok := v.tables[docType]
	if !ok {
		return []string{}
	}

	return slices.Clone(table.Transitions[from])
}

func (v *Validator) InitialStatus(docType models.DocumentType) (string, error) {
	table, ok := v.tables[docType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownDocumentType, docType)
	}

	return table.Initial, nil
}

// IsTerminal reports whether a status has no outgoing transitions. Unknown
// statuses are not terminal.
func (v *Validator) IsTerminal(docType models.DocumentType, status string) bool {
	table, ok := v.tables[docType]
	if !ok {
		return false
	}

	targets, declared := table.Transitions[status]

	return declared && len(targets) == 0
}

// HasStatus reports whether the status is declared for the document type.
func (v *Validator) HasStatus(docType models.DocumentType, status string) bool {
	table, ok := v.tables[docType]
	if !ok {
		return false
	}

	_, declared := table.Transitions[status]

	return declared
}

func (v *Validator) Supports(docType models.DocumentType) bool {
	_, ok := v.tables[docType]

	return ok
}

// Types returns the configured document types in sorted order.
func (v *Validator) Types() []models.DocumentType {
	types := slices.Collect(maps.Keys(v.tables))
	slices.Sort(types)

	return types
}

// Table returns a copy of a document type's table.
func (v *Validator) Table(docType models.DocumentType) (Table, bool) {
	table, ok := v.tables[docType]
	if !ok {
		return Table{}, false
	}

	return table.clone(), true
}

// Tables returns a copy of every table.
func (v *Validator) Tables() map[models.DocumentType]Table {
	out := make(map[models.DocumentType]Table, len(v.tables))
	for docType, table := range v.tables {
		out[docType] = table.clone()
	}

	return out
}
