package agent

import (
	"context"
	"testing"

	"github.com/cognitron/cognitron/cerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsUnmetDependency(t *testing.T) {
	reg := New(nil)
	compliance := NewPrivacyComplianceAgent(reg)

	err := reg.Register(compliance)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.Input))
}

func TestRegisterSucceedsOnceDependencyPresent(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(NewDataPrivacyAgent()))

	compliance := NewPrivacyComplianceAgent(reg)
	assert.NoError(t, reg.Register(compliance))
}

func TestRouteToUnknownAgentFails(t *testing.T) {
	reg := New(nil)
	_, err := reg.Route(context.Background(), "nonexistent", "hi", Context{})
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.NotFound))
}

func TestRouteDispatchesToNamedAgent(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(NewDataPrivacyAgent()))

	out, err := reg.Route(context.Background(), "data_privacy", "my ssn is 123-45-6789", Context{})
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.True(t, result["sensitive"].(bool))
}

func TestComplianceAgentConsultsDataPrivacyDependency(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(NewDataPrivacyAgent()))
	compliance := NewPrivacyComplianceAgent(reg)
	require.NoError(t, reg.Register(compliance))

	out, err := reg.Route(context.Background(), "privacy_compliance", "their credit card number is listed below", Context{})
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.True(t, result["sensitive"].(bool))
	assert.Contains(t, result["note"].(string), "compliance review")
}

func TestRouteWithConfidenceRefusesBelowThreshold(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(NewDataPrivacyAgent()))

	_, err := reg.RouteWithConfidence(context.Background(), "data_privacy", "just a normal message", Context{})
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.NotReady))
}
