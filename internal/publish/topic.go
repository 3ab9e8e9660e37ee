package publish

import (
	"regexp"
	"strings"
)

const fifoSuffix = ".fifo"

// topicPattern matches a fully-qualified destination identifier of the form
// arn:partition:service:region:account:name with an optional .fifo suffix.
var topicPattern = regexp.MustCompile(`^arn:[a-z0-9-]+:[a-z0-9-]+:[a-z0-9-]*:[0-9]*:[A-Za-z0-9_-]+(\.fifo)?$`)

// ResolveTopic validates a fully-qualified destination identifier and returns
// the bare topic name with the FIFO suffix stripped, plus whether the topic
// operates in FIFO mode. Returns an InvalidIdentifierError when the
// identifier does not match the expected shape.
func ResolveTopic(identifier string) (string, bool, error) {
	if !topicPattern.MatchString(identifier) {
		return "", false, &InvalidIdentifierError{Identifier: identifier}
	}

	name := identifier[strings.LastIndex(identifier, ":")+1:]
	if strings.HasSuffix(name, fifoSuffix) {
		return strings.TrimSuffix(name, fifoSuffix), true, nil
	}

	return name, false, nil
}
