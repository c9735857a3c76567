package types

import "errors"

// Sentinel errors for querybuilder operations.
//
// The mutation engine itself never returns errors: missing nodes and vetoed
// edits are silent no-ops and malformed queries are coerced. These errors
// belong to the layers around it (evaluation, formatting, storage, service).
var (
	// ErrInvalidOperator indicates an operator the evaluator does not know.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrInvalidCombinator indicates a combinator other than and/or reached
	// the evaluator or a formatter.
	ErrInvalidCombinator = errors.New("invalid combinator")

	// ErrPathTooDeep indicates a field name exceeds MaxPathDepth segments.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrTooManyWildcards indicates a field name exceeds MaxNestedWildcards.
	ErrTooManyWildcards = errors.New("field path has too many wildcards")

	// ErrInvalidPath indicates a field name that cannot be parsed as a path.
	ErrInvalidPath = errors.New("invalid field path")

	// ErrTooManyInValues indicates an in/notIn rule exceeds MaxInOperatorValues.
	ErrTooManyInValues = errors.New("IN operator has too many values")

	// ErrCoercionFailed indicates a payload value cannot be compared as the
	// type a rule expects.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrFieldNotFound indicates a field path could not be resolved.
	ErrFieldNotFound = errors.New("field not found")

	// ErrUnknownFormat indicates an unsupported export format.
	ErrUnknownFormat = errors.New("unknown format")

	// ErrQueryNotFound indicates no saved query exists under a name/version.
	ErrQueryNotFound = errors.New("query not found")

	// ErrSessionNotFound indicates an unknown or closed builder session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnknownEdit indicates an edit operation the service cannot apply.
	ErrUnknownEdit = errors.New("unknown edit operation")
)
