package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAttributes(t *testing.T) {
	attrs, err := FormatAttributes(map[string]any{
		"eventType": "order.created",
		"retries":   3,
		"channels":  []string{"email", "webhook"},
		"flags":     []any{"a", 1},
	}, "orders", "acme")
	require.NoError(t, err)

	assert.Equal(t, MessageAttribute{DataType: DataTypeString, StringValue: "order.created"}, attrs["eventType"])
	assert.Equal(t, MessageAttribute{DataType: DataTypeString, StringValue: "3"}, attrs["retries"])
	assert.Equal(t, MessageAttribute{DataType: DataTypeStringArray, StringValue: `["email","webhook"]`}, attrs["channels"])
	assert.Equal(t, MessageAttribute{DataType: DataTypeStringArray, StringValue: `["a",1]`}, attrs["flags"])

	assert.Equal(t, MessageAttribute{DataType: DataTypeString, StringValue: "orders"}, attrs[AttributeTopicName])
	assert.Equal(t, MessageAttribute{DataType: DataTypeString, StringValue: "acme"}, attrs[AttributeTenantClient])
}

func TestFormatAttributesNoTenant(t *testing.T) {
	attrs, err := FormatAttributes(nil, "orders", "")
	require.NoError(t, err)

	assert.Len(t, attrs, 1)
	assert.Equal(t, "orders", attrs[AttributeTopicName].StringValue)
	assert.NotContains(t, attrs, AttributeTenantClient)
}

func TestFormatAttributesDerivedWinOnCollision(t *testing.T) {
	attrs, err := FormatAttributes(map[string]any{
		AttributeTopicName:    "spoofed",
		AttributeTenantClient: "spoofed",
	}, "orders", "acme")
	require.NoError(t, err)

	assert.Equal(t, "orders", attrs[AttributeTopicName].StringValue)
	assert.Equal(t, "acme", attrs[AttributeTenantClient].StringValue)
}
