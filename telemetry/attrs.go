package telemetry

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	nokk "github.com/nextlw/nokk-agents"
)

// Attribute keys follow the Langfuse OpenTelemetry conventions, with token
// usage under the gen_ai semantic conventions.

func observationTypeAttr(t string) attribute.KeyValue {
	return attribute.String("langfuse.observation.type", t)
}

func observationInputAttr(v string) attribute.KeyValue {
	return attribute.String("langfuse.observation.input", v)
}

func observationOutputAttr(v string) attribute.KeyValue {
	return attribute.String("langfuse.observation.output", v)
}

func modelNameAttr(model string) attribute.KeyValue {
	return attribute.String("langfuse.observation.model.name", model)
}

func traceOutputAttr(v string) attribute.KeyValue {
	return attribute.String("langfuse.trace.output", v)
}

func inputTokensAttr(tokens int) attribute.KeyValue {
	return attribute.Int("gen_ai.usage.input_tokens", tokens)
}

func outputTokensAttr(tokens int) attribute.KeyValue {
	return attribute.Int("gen_ai.usage.output_tokens", tokens)
}

func agentNameAttr(name string) attribute.KeyValue {
	return attribute.String("agent.name", name)
}

func toolNameAttr(name string) attribute.KeyValue {
	return attribute.String("tool.name", name)
}

func handoffFromAttr(name string) attribute.KeyValue {
	return attribute.String("handoff.from", name)
}

func handoffToAttr(name string) attribute.KeyValue {
	return attribute.String("handoff.to", name)
}

func handoffReasonAttr(reason string) attribute.KeyValue {
	return attribute.String("handoff.reason", reason)
}

// rootAttrs assembles the root span attributes of a run. Static attributes
// come first, then the entry agent, the session and user IDs from the run
// context and the raw input, and finally the dynamic supplier, which
// overrides everything on key collision. The result is key sorted so span
// output is deterministic.
func (c *Correlator) rootAttrs(ctx context.Context, rc *nokk.RunContext, agentName, input string) []attribute.KeyValue {
	merged := make(map[string]any, len(c.static)+3)
	for k, v := range c.static {
		merged[k] = v
	}
	if agentName != "" {
		merged["agent.name"] = agentName
	}
	if v, ok := rc.Value(nokk.SessionIDKey); ok {
		if s := c.serialize(v); s != "" {
			merged["langfuse.session.id"] = s
		}
	}
	if v, ok := rc.Value(nokk.UserIDKey); ok {
		if s := c.serialize(v); s != "" {
			merged["langfuse.user.id"] = s
		}
	}
	if in := c.serialize(input); in != "" {
		merged["langfuse.trace.input"] = in
	}
	if c.dynamic != nil {
		for k, v := range c.dynamic(ctx, rc) {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, toAttr(k, merged[k]))
	}
	return attrs
}

// toAttr converts a merged attribute value to a typed OTel attribute.
// Unsupported types are serialized to a string.
func toAttr(key string, v any) attribute.KeyValue {
	switch t := v.(type) {
	case string:
		return attribute.String(key, t)
	case bool:
		return attribute.Bool(key, t)
	case int:
		return attribute.Int(key, t)
	case int64:
		return attribute.Int64(key, t)
	case float64:
		return attribute.Float64(key, t)
	case []string:
		return attribute.StringSlice(key, t)
	}
	s, err := serializeValue(v)
	if err != nil {
		s = fmt.Sprintf("%v", v)
	}
	return attribute.String(key, s)
}
