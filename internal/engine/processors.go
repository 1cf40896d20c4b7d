package engine

import (
	"strings"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
)

// MessageProcessor emits the configured message and advances along the static edge.
type MessageProcessor struct{}

// Process implements Processor.
func (MessageProcessor) Process(step *domain.Step, _ *string, _ *Context) Outcome {
	content := decode(domain.StepTypeMessage, step).(domain.MessageContent)
	return Outcome{Response: content.Message, HasNextStep: true}
}

// QuestionProcessor prompts for input, then answers with the rendered template.
type QuestionProcessor struct{}

// Process implements Processor.
func (QuestionProcessor) Process(step *domain.Step, input *string, _ *Context) Outcome {
	content := decode(domain.StepTypeQuestion, step).(domain.QuestionContent)
	if input == nil {
		return Outcome{Response: content.Question, WaitForInput: true}
	}
	return Outcome{
		Response:    content.Render(*input),
		NextStepID:  step.NextStepID,
		HasNextStep: step.NextStepID != nil,
	}
}

// ConditionProcessor routes on the first trigger phrase found in the input.
type ConditionProcessor struct{}

// Process implements Processor.
func (ConditionProcessor) Process(step *domain.Step, input *string, ctx *Context) Outcome {
	content := decode(domain.StepTypeCondition, step).(domain.ConditionContent)

	if input != nil {
		lowered := strings.ToLower(*input)
		for _, trigger := range content.Triggers {
			if !strings.Contains(lowered, strings.ToLower(trigger.Phrase)) {
				continue
			}
			// Targets outside the scenario are skipped.
			if ctx == nil || ctx.Graph == nil || !ctx.Graph.Has(trigger.TargetStepID) {
				continue
			}
			target := trigger.TargetStepID
			return Outcome{
				Response:    content.Responses[trigger.Phrase],
				NextStepID:  &target,
				HasNextStep: true,
			}
		}
	}

	return Outcome{
		Response:    content.DefaultResponse,
		NextStepID:  step.NextStepID,
		HasNextStep: step.NextStepID != nil,
	}
}

// APICallProcessor is a placeholder for outbound calls. It reports the configured
// success message and never fails.
type APICallProcessor struct{}

// Process implements Processor.
func (APICallProcessor) Process(step *domain.Step, _ *string, _ *Context) Outcome {
	content := decode(domain.StepTypeAPICall, step).(domain.APICallContent)
	return Outcome{Response: content.SuccessMessage, HasNextStep: true}
}

// decode leniently decodes step content as the given built-in type.
func decode(stepType domain.StepType, step *domain.Step) domain.StepContent {
	content, _ := domain.DecodeContent(stepType, step.Content)
	return content
}
