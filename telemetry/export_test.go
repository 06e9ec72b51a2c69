package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	nokk "github.com/nextlw/nokk-agents"
)

var (
	NewTestCorrelator = newCorrelator
	SerializeValue    = serializeValue
	ToAttr            = toAttr
)

// Attribute builder access for testing
func (c *Correlator) TestRootAttrs(ctx context.Context, rc *nokk.RunContext, agentName, input string) []attribute.KeyValue {
	return c.rootAttrs(ctx, rc, agentName, input)
}

// Serialization with the degrade path for testing
func (c *Correlator) TestSerialize(v any) string {
	return c.serialize(v)
}
