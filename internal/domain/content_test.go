package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentMessage(t *testing.T) {
	content, err := ParseContent(StepTypeMessage, json.RawMessage(`{"message":"Hello"}`))
	require.NoError(t, err)

	msg, ok := content.(MessageContent)
	require.True(t, ok)
	assert.Equal(t, "Hello", msg.Message)
}

func TestParseContentRejectsMalformed(t *testing.T) {
	tests := []struct {
		name     string
		stepType StepType
		raw      string
	}{
		{"not json", StepTypeMessage, `{"message":`},
		{"array", StepTypeMessage, `["x"]`},
		{"empty", StepTypeQuestion, ``},
		{"wrong field type", StepTypeQuestion, `{"question": 42}`},
		{"conditions not object", StepTypeCondition, `{"conditions": ["yes"]}`},
		{"fractional target", StepTypeCondition, `{"conditions": {"yes": 1.5}}`},
		{"non numeric target", StepTypeCondition, `{"conditions": {"yes": "abc"}}`},
		{"unknown step type", StepType("webhook"), `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseContent(tt.stepType, json.RawMessage(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestParseContentConditionKeepsDeclarationOrder(t *testing.T) {
	raw := json.RawMessage(`{
		"conditions": {"zeta": 3, "alpha": "2", "mid": 7},
		"responses": {"zeta": "Z"},
		"default_response": "What?"
	}`)

	content, err := ParseContent(StepTypeCondition, raw)
	require.NoError(t, err)

	cond := content.(ConditionContent)
	assert.Equal(t, []Trigger{
		{Phrase: "zeta", TargetStepID: 3},
		{Phrase: "alpha", TargetStepID: 2},
		{Phrase: "mid", TargetStepID: 7},
	}, cond.Triggers)
	assert.Equal(t, "Z", cond.Responses["zeta"])
	assert.Equal(t, "What?", cond.DefaultResponse)
}

func TestDecodeContentDefaults(t *testing.T) {
	content, ok := DecodeContent(StepTypeCondition, json.RawMessage(`{}`))
	require.True(t, ok)
	cond := content.(ConditionContent)
	assert.Empty(t, cond.Triggers)
	assert.Equal(t, DefaultConditionResponse, cond.DefaultResponse)

	content, ok = DecodeContent(StepTypeAPICall, nil)
	require.True(t, ok)
	assert.Equal(t, "", content.(APICallContent).SuccessMessage)
}

func TestDecodeContentIsLenient(t *testing.T) {
	content, ok := DecodeContent(StepTypeCondition, json.RawMessage(`{"conditions":{"yes":"5","bad":"x","no":6},"default_response":""}`))
	require.True(t, ok)

	cond := content.(ConditionContent)
	assert.Equal(t, []Trigger{{Phrase: "yes", TargetStepID: 5}, {Phrase: "no", TargetStepID: 6}}, cond.Triggers)
	assert.Equal(t, "", cond.DefaultResponse)

	content, ok = DecodeContent(StepTypeMessage, json.RawMessage(`not json`))
	require.True(t, ok)
	assert.Equal(t, MessageContent{}, content)
}

func TestDecodeContentUnknownType(t *testing.T) {
	_, ok := DecodeContent(StepType("webhook"), json.RawMessage(`{}`))
	assert.False(t, ok)
}

func TestQuestionRenderReplacesEveryPlaceholder(t *testing.T) {
	q := QuestionContent{ResponseTemplate: "{user_input}, I heard {user_input}"}
	assert.Equal(t, "Ann, I heard Ann", q.Render("Ann"))

	q = QuestionContent{ResponseTemplate: "no placeholder"}
	assert.Equal(t, "no placeholder", q.Render("Ann"))
}
