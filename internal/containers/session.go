package containers

import (
	"time"

	"github.com/google/uuid"
)

// Container types describing processing sessions.
const (
	SessionStartType      = "session_start"
	SessionCompletionType = "session_completion"
)

// SessionStart records the start of a processing session.
type SessionStart struct {
	Base
	CommandLineArguments string
	DebugMode            bool
	SessionIdentifier    string
	ProductName          string
	ProductVersion       string
	Timestamp            int64
}

// SessionStartSchema is the schema of the session_start container type.
var SessionStartSchema = Schema{
	"command_line_arguments": TypeString,
	"debug_mode":             TypeBool,
	"identifier":             TypeString,
	"product_name":           TypeString,
	"product_version":        TypeString,
	"timestamp":              TypeTimestamp,
}

// NewSessionStart creates a session start with a fresh UUIDv7 session identifier.
// Timestamp is in microseconds since the Unix epoch.
func NewSessionStart(now time.Time) *SessionStart {
	return &SessionStart{
		SessionIdentifier: uuid.Must(uuid.NewV7()).String(),
		Timestamp:         now.UnixMicro(),
	}
}

// NewCompletion creates the matching session completion.
func (s *SessionStart) NewCompletion(now time.Time, aborted bool) *SessionCompletion {
	return &SessionCompletion{
		Aborted:           aborted,
		SessionIdentifier: s.SessionIdentifier,
		Timestamp:         now.UnixMicro(),
	}
}

func (s *SessionStart) ContainerType() string { return SessionStartType }

func (s *SessionStart) AttributeNames() []string { return SessionStartSchema.Names() }

func (s *SessionStart) GetAttribute(name string) (Value, bool) {
	switch name {
	case "command_line_arguments":
		return optionalString(s.CommandLineArguments)
	case "debug_mode":
		return Bool(s.DebugMode), true
	case "identifier":
		return optionalString(s.SessionIdentifier)
	case "product_name":
		return optionalString(s.ProductName)
	case "product_version":
		return optionalString(s.ProductVersion)
	case "timestamp":
		return Int(s.Timestamp), true
	}
	return nil, false
}

func (s *SessionStart) SetAttribute(name string, v Value) error {
	switch name {
	case "command_line_arguments":
		return setString(&s.CommandLineArguments, SessionStartType, name, v)
	case "debug_mode":
		return setBool(&s.DebugMode, SessionStartType, name, v)
	case "identifier":
		return setString(&s.SessionIdentifier, SessionStartType, name, v)
	case "product_name":
		return setString(&s.ProductName, SessionStartType, name, v)
	case "product_version":
		return setString(&s.ProductVersion, SessionStartType, name, v)
	case "timestamp":
		return setInt(&s.Timestamp, SessionStartType, name, v)
	}
	return unknownAttribute(SessionStartType, name)
}

// SessionCompletion records the end of a processing session.
type SessionCompletion struct {
	Base
	Aborted           bool
	SessionIdentifier string
	Timestamp         int64
}

// SessionCompletionSchema is the schema of the session_completion container type.
var SessionCompletionSchema = Schema{
	"aborted":    TypeBool,
	"identifier": TypeString,
	"timestamp":  TypeTimestamp,
}

func (s *SessionCompletion) ContainerType() string { return SessionCompletionType }

func (s *SessionCompletion) AttributeNames() []string { return SessionCompletionSchema.Names() }

func (s *SessionCompletion) GetAttribute(name string) (Value, bool) {
	switch name {
	case "aborted":
		return Bool(s.Aborted), true
	case "identifier":
		return optionalString(s.SessionIdentifier)
	case "timestamp":
		return Int(s.Timestamp), true
	}
	return nil, false
}

func (s *SessionCompletion) SetAttribute(name string, v Value) error {
	switch name {
	case "aborted":
		return setBool(&s.Aborted, SessionCompletionType, name, v)
	case "identifier":
		return setString(&s.SessionIdentifier, SessionCompletionType, name, v)
	case "timestamp":
		return setInt(&s.Timestamp, SessionCompletionType, name, v)
	}
	return unknownAttribute(SessionCompletionType, name)
}
