package containers

import (
	"fmt"
	"strconv"
	"strings"
)

// Identifier names a persisted attribute container.
//
// Sequence numbers are 1-based and strictly increasing per container type.
// The zero Identifier means the container has not been written yet.
type Identifier struct {
	ContainerType  string
	SequenceNumber int64
}

// NewIdentifier creates an identifier for the given container type and sequence number.
func NewIdentifier(containerType string, sequenceNumber int64) Identifier {
	return Identifier{ContainerType: containerType, SequenceNumber: sequenceNumber}
}

// IsZero reports whether the identifier is unset.
func (id Identifier) IsZero() bool {
	return id.SequenceNumber == 0
}

// String returns the form stored in columns of referencing containers: "<type>.<seq>".
func (id Identifier) String() string {
	return id.ContainerType + "." + strconv.FormatInt(id.SequenceNumber, 10)
}

// ParseIdentifier parses the string form produced by Identifier.String.
// Container types may contain dots; the sequence number follows the last one.
func ParseIdentifier(s string) (Identifier, error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return Identifier{}, fmt.Errorf("invalid identifier %q", s)
	}
	seq, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil || seq < 1 {
		return Identifier{}, fmt.Errorf("invalid identifier %q: bad sequence number", s)
	}
	return Identifier{ContainerType: s[:i], SequenceNumber: seq}, nil
}
