package agent

import (
	"context"
	"strings"

	"github.com/cognitron/cognitron/cerr"
	"github.com/google/jsonschema-go/jsonschema"
)

// DataPrivacyAgent flags sensitive fields in a structured request before
// it reaches an external collaborator. It's one of the small set of
// security-minded agents the registry ships with; domain business logic
// lives in caller-supplied agents, not here.
type DataPrivacyAgent struct {
	sensitiveTerms []string
}

// NewDataPrivacyAgent builds the agent with a default sensitive-term set.
func NewDataPrivacyAgent() *DataPrivacyAgent {
	return &DataPrivacyAgent{
		sensitiveTerms: []string{"ssn", "social security", "password", "credit card", "date of birth"},
	}
}

var dataPrivacyInputSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"text": {Type: "string"},
	},
	Required: []string{"text"},
}

var dataPrivacyOutputSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"sensitive":         {Type: "boolean"},
		"matched_terms":     {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		"confidence_score":  {Type: "number"},
	},
	Required: []string{"sensitive", "confidence_score"},
}

func (a *DataPrivacyAgent) Metadata() Metadata {
	return Metadata{
		Name:         "data_privacy",
		Description:  "flags personally identifiable or otherwise sensitive content in a request",
		Dependencies: nil,
		InputSchema:  dataPrivacyInputSchema,
		OutputSchema: dataPrivacyOutputSchema,
	}
}

func (a *DataPrivacyAgent) Preferences() Preferences {
	return Preferences{ConfidenceThreshold: 0.6, PreferredPriority: 5}
}

func (a *DataPrivacyAgent) ConfidenceThreshold() float64 {
	return 0.6
}

type dataPrivacyInput struct {
	Text string
}

func coerceText(input any) (string, error) {
	switch v := input.(type) {
	case string:
		return v, nil
	case dataPrivacyInput:
		return v.Text, nil
	case map[string]any:
		if s, ok := v["text"].(string); ok {
			return s, nil
		}
	}
	return "", cerr.New("agent", cerr.Input, "data_privacy requires a text field")
}

func (a *DataPrivacyAgent) matches(text string) []string {
	lower := strings.ToLower(text)
	var hits []string
	for _, term := range a.sensitiveTerms {
		if strings.Contains(lower, term) {
			hits = append(hits, term)
		}
	}
	return hits
}

func (a *DataPrivacyAgent) Execute(ctx context.Context, input any, agentCtx Context) (any, error) {
	text, err := coerceText(input)
	if err != nil {
		return nil, err
	}
	hits := a.matches(text)
	confidence := 0.5
	if len(hits) > 0 {
		confidence = 0.92
	}
	return map[string]any{
		"sensitive":        len(hits) > 0,
		"matched_terms":    hits,
		"confidence_score": confidence,
	}, nil
}

func (a *DataPrivacyAgent) AssessConfidence(ctx context.Context, input any, agentCtx Context) (float64, error) {
	text, err := coerceText(input)
	if err != nil {
		return 0, err
	}
	if len(a.matches(text)) > 0 {
		return 0.92, nil
	}
	return 0.5, nil
}

// PrivacyComplianceAgent depends on data_privacy's classification to
// decide whether a request needs a compliance review note. Registering
// it before data_privacy must fail the dependency check.
type PrivacyComplianceAgent struct {
	registry *Registry
}

// NewPrivacyComplianceAgent builds the agent; registry is used to consult
// data_privacy's classification during execution.
func NewPrivacyComplianceAgent(registry *Registry) *PrivacyComplianceAgent {
	return &PrivacyComplianceAgent{registry: registry}
}

func (a *PrivacyComplianceAgent) Metadata() Metadata {
	return Metadata{
		Name:         "privacy_compliance",
		Description:  "recommends a compliance note when data_privacy flags sensitive content",
		Dependencies: []string{"data_privacy"},
	}
}

func (a *PrivacyComplianceAgent) Preferences() Preferences {
	return Preferences{ConfidenceThreshold: 0.5, PreferredPriority: 4}
}

func (a *PrivacyComplianceAgent) ConfidenceThreshold() float64 {
	return 0.5
}

func (a *PrivacyComplianceAgent) Execute(ctx context.Context, input any, agentCtx Context) (any, error) {
	result, err := a.registry.Route(ctx, "data_privacy", input, agentCtx)
	if err != nil {
		return nil, err
	}
	classification, _ := result.(map[string]any)
	sensitive, _ := classification["sensitive"].(bool)

	note := "no compliance action required"
	if sensitive {
		note = "flag for compliance review before external handoff"
	}
	return map[string]any{"sensitive": sensitive, "note": note}, nil
}

func (a *PrivacyComplianceAgent) AssessConfidence(ctx context.Context, input any, agentCtx Context) (float64, error) {
	return 0.75, nil
}
