package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyKinds(t *testing.T) {
	cases := []struct {
		nodeType string
		want     NodeKind
	}{
		{"manual.trigger", NodeKindTrigger},
		{"webhook.trigger", NodeKindTrigger},
		{"manual.task", NodeKindManual},
		{"human.approval", NodeKindHuman},
		{"human.legal_review", NodeKindHuman},
		{"contract.review", NodeKindHuman},
		{"ai.prompt", NodeKindAI},
		{"vendor.llm_call", NodeKindAI},
		{"anthropic.messages", NodeKindAI},
		{"dms.ingest", NodeKindSystem},
		{"artifact.render", NodeKindSystem},
		{"system.reconcile", NodeKindSystem},
		{"custom.evaluate", NodeKindSystem},
		{"condition.branch", NodeKindCondition},
		{"flow.route", NodeKindCondition},
		{"transform.map", NodeKindTransform},
		{"data.aggregate", NodeKindTransform},
		{"items.for_each", NodeKindTransform},
		{"notify.email", NodeKindNotification},
		{"notify.slack", NodeKindNotification},
		{"", NodeKindUnknown},
		{"something.else", NodeKindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.nodeType, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.nodeType).Kind)
		})
	}
}

// Rule order encodes precedence: a trigger beats the manual rule, a human
// prefix beats the generic validate/evaluate system rule.
func TestClassifyPrecedence(t *testing.T) {
	assert.Equal(t, NodeKindTrigger, Classify("manual.trigger").Kind)
	assert.Equal(t, NodeKindHuman, Classify("human.validate").Kind)
	assert.Equal(t, NodeKindHuman, Classify("human.approval").Kind)
	// dms prefix wins over the transform "convert" keyword.
	assert.Equal(t, NodeKindSystem, Classify("dms.convert").Kind)
}

func TestClassifyLabels(t *testing.T) {
	assert.Equal(t, "Human Approval", Classify("human.approval").Label)
	assert.Equal(t, "AI Prompt", Classify("ai.prompt").Label)
	assert.Equal(t, "Legal Review", Classify("human.legal_review").Label)
	// Unknown dotted type falls through to the Title Case transform.
	assert.Equal(t, "Dms Ocr Scan", Classify("dms.ocr_scan").Label)
	// Empty type gets the literal fallback.
	assert.Equal(t, "Workflow Step", Classify("").Label)
	assert.Equal(t, "Workflow Step", Classify("  ").Label)
}

func TestClassifyDescriptions(t *testing.T) {
	assert.Contains(t, Classify("webhook.trigger").Description, "performs no processing")
	assert.Contains(t, Classify("human.input").Description, "signs off")
	assert.Contains(t, Classify("ai.embed").Description, "shared automation path")
	assert.Contains(t, Classify("system.cleanup").Description, "shared automation path")
	assert.Contains(t, Classify("something.else").Description, "depends on the node contract")
	assert.Contains(t, Classify("").Description, "depends on the node contract")
}

func TestClassifyIsCaseAndSpaceTolerant(t *testing.T) {
	assert.Equal(t, NodeKindHuman, Classify("  Human.Approval ").Kind)
	assert.Equal(t, "Human Approval", Classify("HUMAN.APPROVAL").Label)
}
