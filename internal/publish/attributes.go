package publish

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Wire attribute data types.
const (
	DataTypeString      = "String"
	DataTypeStringArray = "String.Array"
)

// Derived attribute names. These are always written last, so they win over
// colliding caller-supplied attributes.
const (
	AttributeTopicName    = "topicName"
	AttributeTenantClient = "tenant-client"
)

// MessageAttribute is the wire encoding of a single attribute value.
type MessageAttribute struct {
	DataType    string `json:"dataType"`
	StringValue string `json:"stringValue"`
}

// FormatAttributes converts a free-form attribute map into wire attributes.
// Array values are encoded as String.Array with the array JSON-serialized;
// everything else becomes a String attribute in its string form. The derived
// topicName attribute is always present and tenant-client is added when a
// tenant code is known.
func FormatAttributes(attrs map[string]any, topic, tenant string) (map[string]MessageAttribute, error) {
	out := make(map[string]MessageAttribute, len(attrs)+2)

	for name, value := range attrs {
		formatted, err := formatAttributeValue(value)
		if err != nil {
			return nil, fmt.Errorf("failed to format attribute %s: %w", name, err)
		}
		out[name] = formatted
	}

	out[AttributeTopicName] = MessageAttribute{DataType: DataTypeString, StringValue: topic}
	if tenant != "" {
		out[AttributeTenantClient] = MessageAttribute{DataType: DataTypeString, StringValue: tenant}
	}

	return out, nil
}

func formatAttributeValue(value any) (MessageAttribute, error) {
	switch v := value.(type) {
	case string:
		return MessageAttribute{DataType: DataTypeString, StringValue: v}, nil
	case nil:
		return MessageAttribute{DataType: DataTypeString, StringValue: ""}, nil
	}

	if k := reflect.ValueOf(value).Kind(); k == reflect.Slice || k == reflect.Array {
		encoded, err := json.Marshal(value)
		if err != nil {
			return MessageAttribute{}, fmt.Errorf("failed to serialize array value: %w", err)
		}
		return MessageAttribute{DataType: DataTypeStringArray, StringValue: string(encoded)}, nil
	}

	return MessageAttribute{DataType: DataTypeString, StringValue: fmt.Sprintf("%v", value)}, nil
}

// attributesSize returns the byte contribution of wire attributes to the
// formatted entry size: name, data type and value all count.
func attributesSize(attrs map[string]MessageAttribute) int {
	size := 0
	for name, attr := range attrs {
		size += len(name) + len(attr.DataType) + len(attr.StringValue)
	}
	return size
}
