package api

import (
	"context"
	"errors"

	"github.com/solatis/querybuilder/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	errTooManySessions = errors.New("session limit reached")
	errQueryTooCostly  = errors.New("query exceeds cost limit")
	errNoStore         = errors.New("no query store configured")
	errMissingArgument = errors.New("missing argument")
)

// toStatus maps service errors to gRPC status codes.
// Unknown sessions and saved queries map to NOT_FOUND.
// Malformed requests and queries the evaluator rejects map to INVALID_ARGUMENT.
// Limits map to RESOURCE_EXHAUSTED.
// Store errors map to UNAVAILABLE.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, types.ErrSessionNotFound), errors.Is(err, types.ErrQueryNotFound):
		code = codes.NotFound
	case errors.Is(err, errMissingArgument),
		errors.Is(err, types.ErrUnknownEdit),
		errors.Is(err, types.ErrUnknownFormat),
		errors.Is(err, types.ErrInvalidOperator),
		errors.Is(err, types.ErrInvalidCombinator),
		errors.Is(err, types.ErrInvalidPath),
		errors.Is(err, types.ErrPathTooDeep),
		errors.Is(err, types.ErrTooManyWildcards),
		errors.Is(err, types.ErrTooManyInValues):
		code = codes.InvalidArgument
	case errors.Is(err, errTooManySessions), errors.Is(err, errQueryTooCostly):
		code = codes.ResourceExhausted
	case errors.Is(err, errNoStore):
		code = codes.FailedPrecondition
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	default:
		code = codes.Unavailable
	}
	return status.Error(code, err.Error())
}
