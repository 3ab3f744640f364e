package transitions

import (
	"testing"

	"github.com/dukex/supplyflow/pkg/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func allStatuses(v *Validator) []string {
	seen := map[string]bool{}

	var out []string

	for _, table := range v.Tables() {
		for status := range table.Transitions {
			if !seen[status] {
				seen[status] = true
				out = append(out, status)
			}
		}
	}

	return out
}

// AssertTransition accepts a pair exactly when the table lists it.
func TestAssertTransition_AcceptsOnlyDeclaredPairs(t *testing.T) {
	v := Default()
	types := v.Types()
	statuses := allStatuses(v)

	typeGen := gen.IntRange(0, len(types)-1).Map(func(i int) models.DocumentType { return types[i] })
	statusGen := gen.IntRange(0, len(statuses)-1).Map(func(i int) string { return statuses[i] })

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("accepted iff declared", prop.ForAll(
		func(docType models.DocumentType, from, to string) bool {
			table, _ := v.Table(docType)

			declared := false
			for _, next := range table.Transitions[from] {
				if next == to {
					declared = true
				}
			}

			return (v.AssertTransition(docType, from, to) == nil) == declared
		},
		typeGen, statusGen, statusGen,
	))

	properties.TestingRun(t)
}

// Every walk from the initial status stays inside declared statuses and
// always has a terminal status reachable.
func TestRandomWalks_StayInsideTableAndCanTerminate(t *testing.T) {
	v := Default()
	types := v.Types()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("walks terminate", prop.ForAll(
		func(typeIndex int, choices []int) bool {
			docType := types[typeIndex]
			table, _ := v.Table(docType)

			status := table.Initial
			for _, choice := range choices {
				next := v.AllowedNext(docType, status)
				if len(next) == 0 {
					break
				}

				status = next[choice%len(next)]
				if !v.HasStatus(docType, status) {
					return false
				}
			}

			sub := Table{Initial: status, Transitions: table.Transitions}
			for reached := range sub.Reachable() {
				if v.IsTerminal(docType, reached) {
					return true
				}
			}

			return false
		},
		gen.IntRange(0, len(types)-1),
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.TestingRun(t)
}
