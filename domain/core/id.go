package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID        ID
	ExperimentID ID
	TestID       ID
)

// NewRunID creates a time-ordered run identifier
func NewRunID() RunID { return RunID(NewID()) }

// String conversions for domain IDs
func (id RunID) String() string        { return ID(id).String() }
func (id ExperimentID) String() string { return ID(id).String() }
func (id TestID) String() string       { return ID(id).String() }

// ParseExperimentID parses a string into ExperimentID
func ParseExperimentID(s string) (ExperimentID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("experiment ID cannot be empty")
	}
	if strings.ContainsAny(s, `/\`) {
		return "", fmt.Errorf("experiment ID %q must not contain path separators", s)
	}
	return ExperimentID(s), nil
}

// ParseTestID parses a string into TestID
func ParseTestID(s string) (TestID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("test ID cannot be empty")
	}
	if strings.ContainsAny(s, `/\`) || strings.HasPrefix(s, ".") {
		return "", fmt.Errorf("test ID %q is not a plain file stem", s)
	}
	return TestID(s), nil
}
