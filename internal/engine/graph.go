// Package engine provides the scenario execution engine: step processors and the
// rules that move an execution through a scenario graph.
package engine

import "github.com/larasedova/alpina-gpt-builder/internal/domain"

// Graph is a scenario with all of its steps indexed by id. Links between steps
// are resolved through the graph, never through object references.
type Graph struct {
	Scenario *domain.Scenario
	steps    map[int64]*domain.Step
}

// NewGraph builds the graph of a scenario. Steps of other scenarios are ignored.
func NewGraph(scenario *domain.Scenario, steps []domain.Step) *Graph {
	g := &Graph{
		Scenario: scenario,
		steps:    make(map[int64]*domain.Step, len(steps)),
	}
	for i := range steps {
		if steps[i].ScenarioID != scenario.ID {
			continue
		}
		g.steps[steps[i].ID] = &steps[i]
	}
	return g
}

// Step returns the step with the given id if it belongs to the scenario.
func (g *Graph) Step(id int64) (*domain.Step, bool) {
	step, ok := g.steps[id]
	return step, ok
}

// Has reports whether id resolves within the scenario.
func (g *Graph) Has(id int64) bool {
	_, ok := g.steps[id]
	return ok
}

// EntryID returns the scenario's initial step id, or nil when no entry point is set.
func (g *Graph) EntryID() *int64 {
	if g.Scenario == nil {
		return nil
	}
	return g.Scenario.InitialStepID
}
