package engine

import "github.com/larasedova/alpina-gpt-builder/internal/domain"

// Context is what a processor may inspect while handling a step.
type Context struct {
	Execution *domain.Execution
	Graph     *Graph
}

// Outcome is the result of processing one step.
//
// NextStepID is an explicit jump decided by the processor. When it is nil and
// HasNextStep is true, the step's static edge is followed.
type Outcome struct {
	Response     string
	NextStepID   *int64
	HasNextStep  bool
	WaitForInput bool
}

// Processor handles one step type. Implementations must be pure: they never
// mutate the step, the execution or the graph.
type Processor interface {
	Process(step *domain.Step, input *string, ctx *Context) Outcome
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(step *domain.Step, input *string, ctx *Context) Outcome

// Process implements Processor.
func (f ProcessorFunc) Process(step *domain.Step, input *string, ctx *Context) Outcome {
	return f(step, input, ctx)
}

// Registry maps step types to their processors.
type Registry struct {
	processors map[domain.StepType]Processor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[domain.StepType]Processor)}
}

// DefaultRegistry returns a registry with the built-in processors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(domain.StepTypeMessage, MessageProcessor{})
	r.Register(domain.StepTypeQuestion, QuestionProcessor{})
	r.Register(domain.StepTypeCondition, ConditionProcessor{})
	r.Register(domain.StepTypeAPICall, APICallProcessor{})
	return r
}

// Register adds or replaces the processor of a step type.
func (r *Registry) Register(stepType domain.StepType, p Processor) {
	r.processors[stepType] = p
}

// Lookup returns the processor of a step type.
func (r *Registry) Lookup(stepType domain.StepType) (Processor, bool) {
	p, ok := r.processors[stepType]
	return p, ok
}
