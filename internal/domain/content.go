package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
)

// UserInputPlaceholder is substituted with the literal user input in question templates.
const UserInputPlaceholder = "{user_input}"

// StepContent is the typed payload of a step. The concrete type is selected by the
// step type tag: MessageContent, QuestionContent, ConditionContent or APICallContent.
type StepContent interface {
	StepType() StepType
}

// MessageContent is the payload of a message step.
type MessageContent struct {
	Message string `mapstructure:"message"`
}

// StepType implements StepContent.
func (MessageContent) StepType() StepType { return StepTypeMessage }

// QuestionContent is the payload of a question step.
type QuestionContent struct {
	Question         string `mapstructure:"question"`
	ResponseTemplate string `mapstructure:"response_template"`
}

// StepType implements StepContent.
func (QuestionContent) StepType() StepType { return StepTypeQuestion }

// Render substitutes every placeholder in the response template with input.
func (c QuestionContent) Render(input string) string {
	return strings.ReplaceAll(c.ResponseTemplate, UserInputPlaceholder, input)
}

// Trigger routes to TargetStepID when Phrase occurs in the user input.
type Trigger struct {
	Phrase       string
	TargetStepID int64
}

// ConditionContent is the payload of a condition step. Triggers keep the
// declaration order of the "conditions" object.
type ConditionContent struct {
	Triggers        []Trigger         `mapstructure:"-"`
	Responses       map[string]string `mapstructure:"responses"`
	DefaultResponse string            `mapstructure:"default_response"`
}

// SetDefaults implements defaults.Setter.
func (c *ConditionContent) SetDefaults() {
	if defaults.CanUpdate(c.DefaultResponse) {
		c.DefaultResponse = DefaultConditionResponse
	}
}

// StepType implements StepContent.
func (ConditionContent) StepType() StepType { return StepTypeCondition }

// APICallContent is the payload of an api_call step.
type APICallContent struct {
	SuccessMessage string `mapstructure:"success_message"`
}

// StepType implements StepContent.
func (APICallContent) StepType() StepType { return StepTypeAPICall }

// ParseContent strictly parses raw content for the given step type. It is used
// when steps are authored; any malformed field is reported as a ValidationError.
func ParseContent(stepType StepType, raw json.RawMessage) (StepContent, error) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return nil, NewValidationError("content", "must be a JSON object")
	}

	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, NewValidationError("content", err.Error())
	}

	target, err := newContent(stepType)
	if err != nil {
		return nil, err
	}
	if err := decodeInto(values, target, false); err != nil {
		return nil, NewValidationError("content", err.Error())
	}

	if cond, ok := target.(*ConditionContent); ok {
		triggers, err := parseTriggers(raw, true)
		if err != nil {
			return nil, err
		}
		cond.Triggers = triggers
	}

	return deref(target), nil
}

// DecodeContent leniently decodes raw content for the given step type. It never
// fails: missing or malformed fields keep their defaults. ok is false only for an
// unknown step type.
func DecodeContent(stepType StepType, raw json.RawMessage) (content StepContent, ok bool) {
	target, err := newContent(stepType)
	if err != nil {
		return nil, false
	}

	var values map[string]any
	if len(raw) > 0 && json.Unmarshal(raw, &values) == nil {
		_ = decodeInto(values, target, true)
	}

	if cond, isCond := target.(*ConditionContent); isCond && len(raw) > 0 && gjson.ValidBytes(raw) {
		cond.Triggers, _ = parseTriggers(raw, false)
	}

	return deref(target), true
}

func newContent(stepType StepType) (StepContent, error) {
	var target StepContent
	switch stepType {
	case StepTypeMessage:
		target = &MessageContent{}
	case StepTypeQuestion:
		target = &QuestionContent{}
	case StepTypeCondition:
		target = &ConditionContent{}
	case StepTypeAPICall:
		target = &APICallContent{}
	default:
		return nil, NewValidationError("step_type", fmt.Sprintf("unsupported step type %q", stepType))
	}
	if err := defaults.Set(target); err != nil {
		return nil, fmt.Errorf("failed to apply content defaults: %w", err)
	}
	return target, nil
}

func decodeInto(values map[string]any, target any, weak bool) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: weak,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(values)
}

// parseTriggers walks the "conditions" object in document order. In strict mode a
// non-object or a non-integer target is an error; otherwise bad entries are skipped.
func parseTriggers(raw json.RawMessage, strict bool) ([]Trigger, error) {
	conditions := gjson.GetBytes(raw, "conditions")
	if !conditions.Exists() {
		return nil, nil
	}
	if !conditions.IsObject() {
		if strict {
			return nil, NewValidationError("content.conditions", "must be an object of phrase to step id")
		}
		return nil, nil
	}

	var triggers []Trigger
	var parseErr error
	conditions.ForEach(func(key, value gjson.Result) bool {
		id, ok := stepIDFromResult(value)
		if !ok {
			if strict {
				parseErr = NewValidationError("content.conditions."+key.String(), "target must be an integer step id")
				return false
			}
			return true
		}
		triggers = append(triggers, Trigger{Phrase: key.String(), TargetStepID: id})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return triggers, nil
}

func stepIDFromResult(value gjson.Result) (int64, bool) {
	switch value.Type {
	case gjson.Number:
		id := value.Int()
		if float64(id) != value.Num || id <= 0 {
			return 0, false
		}
		return id, true
	case gjson.String:
		id, err := strconv.ParseInt(strings.TrimSpace(value.Str), 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

func deref(target StepContent) StepContent {
	switch c := target.(type) {
	case *MessageContent:
		return *c
	case *QuestionContent:
		return *c
	case *ConditionContent:
		return *c
	case *APICallContent:
		return *c
	default:
		return target
	}
}
