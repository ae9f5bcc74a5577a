package graph

import "strings"

// Classification is the semantic reading of a raw node type string.
type Classification struct {
	Kind        NodeKind `json:"kind"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
}

// kindRule maps a type-string predicate to a NodeKind. Rules are evaluated in
// order and the first match wins; order encodes real precedence (human.approval
// must hit the human rule before any generic system rule sees it).
type kindRule struct {
	kind  NodeKind
	match func(string) bool
}

var kindRules = []kindRule{
	{NodeKindTrigger, func(t string) bool { return strings.Contains(t, "trigger") }},
	{NodeKindManual, func(t string) bool { return strings.Contains(t, "manual") }},
	{NodeKindHuman, func(t string) bool {
		return strings.HasPrefix(t, "human.") ||
			strings.Contains(t, "approval") || strings.Contains(t, "review")
	}},
	{NodeKindAI, func(t string) bool {
		return strings.HasPrefix(t, "ai.") ||
			strings.Contains(t, "llm") || strings.Contains(t, "openai") ||
			strings.Contains(t, "anthropic") || strings.Contains(t, "claude") ||
			strings.Contains(t, "gemini") || strings.Contains(t, "gpt")
	}},
	{NodeKindSystem, func(t string) bool {
		return strings.HasPrefix(t, "dms.") || strings.HasPrefix(t, "artifact.") ||
			strings.HasPrefix(t, "system.") ||
			strings.Contains(t, "evaluate") || strings.Contains(t, "validate") ||
			strings.Contains(t, "reconcile")
	}},
	{NodeKindCondition, func(t string) bool {
		return strings.Contains(t, "condition") || strings.Contains(t, "branch") ||
			strings.Contains(t, "route")
	}},
	{NodeKindTransform, func(t string) bool {
		return strings.Contains(t, "transform") || strings.Contains(t, "map") ||
			strings.Contains(t, "convert") || strings.Contains(t, "aggregate") ||
			strings.Contains(t, "for_each")
	}},
	{NodeKindNotification, func(t string) bool {
		return strings.Contains(t, "notify") || strings.Contains(t, "email") ||
			strings.Contains(t, "slack")
	}},
}

// knownLabels maps well-known exact type strings to display labels.
var knownLabels = map[string]string{
	"manual.trigger":     "Manual Trigger",
	"chat.trigger":       "Chat Trigger",
	"schedule.trigger":   "Scheduled Trigger",
	"webhook.trigger":    "Webhook Trigger",
	"human.approval":     "Human Approval",
	"human.review":       "Human Review",
	"human.legal_review": "Legal Review",
	"human.signoff":      "Final Sign-off",
	"human.input":        "Human Input",
	"ai.prompt":          "AI Prompt",
	"ai.extract":         "AI Extraction",
	"ai.classify":        "AI Classification",
	"ai.summarize":       "AI Summary",
	"ai.translate":       "AI Translation",
	"ai.redline":         "AI Redline",
	"dms.ingest":         "Document Ingest",
	"dms.convert":        "Document Conversion",
	"dms.publish":        "Publish Document",
	"dms.archive":        "Archive Document",
	"artifact.render":    "Render Artifact",
	"artifact.store":     "Store Artifact",
	"system.evaluate":    "Evaluate Rules",
	"system.validate":    "Validate Output",
	"system.reconcile":   "Reconcile Records",
	"condition.branch":   "Branch",
	"transform.map":      "Map Fields",
	"notify.email":       "Email Notification",
	"notify.slack":       "Slack Notification",
}

// knownDescriptions carries fixed sentences for exact type matches.
var knownDescriptions = map[string]string{
	"manual.trigger":     "Marks where the run was started by hand; performs no processing.",
	"chat.trigger":       "Marks where the run was started from a chat session; performs no processing.",
	"human.approval":     "Pauses the run until the assigned approver signs off.",
	"human.legal_review": "Pauses the run until legal review is recorded.",
	"dms.publish":        "Publishes the finished document to the library.",
}

const fallbackLabel = "Workflow Step"

// Classify maps a raw node type string to its semantic kind, a generic display
// label, and an execution description. Pure and total: any input, including
// the empty string, produces a result.
func Classify(nodeType string) Classification {
	t := strings.ToLower(strings.TrimSpace(nodeType))

	kind := NodeKindUnknown
	for _, rule := range kindRules {
		if t != "" && rule.match(t) {
			kind = rule.kind
			break
		}
	}

	return Classification{
		Kind:        kind,
		Label:       typeLabel(t),
		Description: typeDescription(t, kind),
	}
}

// typeLabel resolves a display label: the well-known table first, then a
// Title Case transform of the dotted type, then a literal fallback.
func typeLabel(t string) string {
	if label, ok := knownLabels[t]; ok {
		return label
	}
	if t == "" {
		return fallbackLabel
	}
	return titleCaseType(t)
}

// titleCaseType turns "dms.ocr_scan" into "Dms Ocr Scan".
func titleCaseType(t string) string {
	words := strings.FieldsFunc(t, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == ' '
	})
	if len(words) == 0 {
		return fallbackLabel
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// typeDescription resolves the short execution description.
func typeDescription(t string, kind NodeKind) string {
	if desc, ok := knownDescriptions[t]; ok {
		return desc
	}
	switch {
	case kind == NodeKindTrigger:
		return "Marks where the run was initiated; performs no processing."
	case kind == NodeKindHuman || strings.HasPrefix(t, "human."):
		return "Pauses the run until the assigned person signs off."
	case strings.HasPrefix(t, "ai.") || strings.HasPrefix(t, "system."),
		strings.HasPrefix(t, "dms."), strings.HasPrefix(t, "artifact."):
		return "Runs through the shared automation path."
	default:
		return "Behavior depends on the node contract for this type."
	}
}
