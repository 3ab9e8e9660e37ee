package publish

// Event is the caller-supplied unit of publication. The struct is treated as
// immutable once handed to a Publisher; all derived state lives on DraftEntry.
type Event struct {
	// Content is the message payload. Strings are embedded verbatim, any
	// other value is JSON-serialized to form the message body.
	Content any `json:"content"`
	// Attributes maps attribute names to scalar or string-array values.
	Attributes map[string]any `json:"attributes,omitempty"`
	// Subject is an optional display subject passed through to the transport.
	Subject string `json:"subject,omitempty"`
	// MessageStructure is passed through verbatim when present.
	MessageStructure string `json:"messageStructure,omitempty"`
	// MessageGroupID and MessageDeduplicationID only apply to FIFO topics.
	MessageGroupID         string `json:"messageGroupId,omitempty"`
	MessageDeduplicationID string `json:"messageDeduplicationId,omitempty"`
	// PayloadFixedProperties names content keys that must remain inline in
	// the message even after the payload is offloaded to blob storage.
	// Keys missing from Content are silently omitted.
	PayloadFixedProperties []string `json:"payloadFixedProperties,omitempty"`
}
