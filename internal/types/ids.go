package types

import (
	"github.com/google/uuid"
)

// Conventional prefixes for node IDs.
const (
	RuleIDPrefix  = "r-"
	GroupIDPrefix = "g-"
)

// NewID generates a UUIDv7 identifier.
// Content-agnostic: callers decide on prefixes. Time-ordered IDs keep
// snapshots that are stored and re-listed in creation order readable.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewRuleID generates a rule identifier ("r-" + NewID()).
func NewRuleID() string {
	return RuleIDPrefix + NewID()
}

// NewGroupID generates a rule group identifier ("g-" + NewID()).
func NewGroupID() string {
	return GroupIDPrefix + NewID()
}

// NewIDFor generates an identifier with the prefix matching kind.
func NewIDFor(kind NodeKind) string {
	if kind == NodeKindGroup {
		return NewGroupID()
	}
	return NewRuleID()
}
