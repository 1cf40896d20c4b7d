package engine

import (
	"go.uber.org/zap"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
	"github.com/larasedova/alpina-gpt-builder/internal/log"
)

// Result is what one turn of the engine produced. The execution passed in the
// Context has already been updated accordingly.
type Result struct {
	Response     string
	Completed    bool
	WaitForInput bool
	// Fault is set when the scenario is misconfigured and Response is a diagnostic.
	Fault bool
}

// Engine dispatches the current step of an execution to its processor and
// applies the outcome. It performs exactly one dispatch per call.
type Engine struct {
	registry *Registry
	logger   *zap.Logger
}

// New creates an engine. A nil registry selects DefaultRegistry.
func New(registry *Registry) *Engine {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Engine{
		registry: registry,
		logger:   log.Component("ScenarioEngine"),
	}
}

// Run advances ctx.Execution by one step using input. It mutates the execution's
// current step and completed flag but never its transcript.
func (e *Engine) Run(ctx *Context, input *string) Result {
	exec := ctx.Execution
	logger := e.logger.With(zap.String("execution_id", exec.ID))

	if exec.CurrentStepID == nil {
		entry := ctx.Graph.EntryID()
		if entry == nil {
			logger.Warn("Scenario has no entry point", zap.Int64("scenario_id", scenarioID(ctx.Graph)))
			exec.IsCompleted = true
			return Result{Response: domain.ResponseNoEntryPoint, Completed: true, Fault: true}
		}
		id := *entry
		exec.CurrentStepID = &id
	}

	step, ok := ctx.Graph.Step(*exec.CurrentStepID)
	if !ok {
		logger.Warn("Current step does not resolve within the scenario",
			zap.Int64("step_id", *exec.CurrentStepID))
		exec.IsCompleted = true
		return Result{Response: domain.ResponseMisconfiguredStep, Completed: true, Fault: true}
	}

	if exec.IsCompleted && !step.Type.AcceptsInput() {
		return Result{Response: domain.ResponseScenarioCompleted, Completed: true}
	}

	var outcome Outcome
	processor, ok := e.registry.Lookup(step.Type)
	if !ok {
		logger.Warn("Unrecognized step type", zap.Int64("step_id", step.ID),
			zap.String("step_type", string(step.Type)))
		outcome = Outcome{Response: domain.ResponseUnknownStepType}
	} else {
		logger.Debug("Executing step", zap.Int64("step_id", step.ID), zap.String("step_type", string(step.Type)))
		var panicked bool
		outcome, panicked = safeProcess(processor, step, input, ctx, logger)
		if panicked {
			return Result{Response: domain.ResponseApology, Completed: exec.IsCompleted}
		}
	}

	result := Apply(exec, ctx.Graph, step, outcome)
	if result.Fault {
		logger.Warn("Step points outside its scenario", zap.Int64("step_id", step.ID))
	}
	result.Fault = result.Fault || !ok
	return result
}

// Apply moves the execution according to the outcome of processing step:
//
//   - an explicit next step is followed and the execution stays open;
//   - otherwise, when the outcome asks to continue, the static edge is followed,
//     and a missing edge marks the terminal step as reached;
//   - an outcome that does not continue completes the execution in place.
//
// Any target that does not resolve within the graph completes the execution with
// a diagnostic response instead.
func Apply(exec *domain.Execution, graph *Graph, step *domain.Step, outcome Outcome) Result {
	result := Result{Response: outcome.Response, WaitForInput: outcome.WaitForInput}

	var target *int64
	switch {
	case outcome.NextStepID != nil:
		target = outcome.NextStepID
	case outcome.HasNextStep:
		if step.NextStepID == nil {
			exec.IsCompleted = true
			result.Completed = true
			return result
		}
		target = step.NextStepID
	default:
		exec.IsCompleted = true
		result.Completed = true
		return result
	}

	if !graph.Has(*target) {
		exec.IsCompleted = true
		return Result{Response: domain.ResponseMisconfiguredStep, Completed: true, Fault: true}
	}

	id := *target
	exec.CurrentStepID = &id
	exec.IsCompleted = false
	return result
}

// safeProcess runs a processor, turning a panic into an apology so that the
// turn still gets an assistant reply and the execution stays where it was.
func safeProcess(p Processor, step *domain.Step, input *string, ctx *Context, logger *zap.Logger) (outcome Outcome, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Step processor panicked", zap.Int64("step_id", step.ID), zap.Any("panic", r))
			outcome, panicked = Outcome{}, true
		}
	}()
	return p.Process(step, input, ctx), false
}

func scenarioID(g *Graph) int64 {
	if g == nil || g.Scenario == nil {
		return 0
	}
	return g.Scenario.ID
}
