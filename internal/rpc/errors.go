package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/propagation-tool/core"
	"github.com/signalsfoundry/propagation-tool/internal/store"
	"github.com/signalsfoundry/propagation-tool/kb"
)

// ErrArchiveDisabled is returned by run archive RPCs when the server has no
// store configured.
var ErrArchiveDisabled = errors.New("run archive is disabled")

// ToStatusError maps engine, catalog and store errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()

	case errors.Is(err, core.ErrInvalidParameter):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, core.ErrNumericDegeneracy),
		errors.Is(err, ErrArchiveDisabled):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, core.ErrNoConvergence):
		return status.Error(codes.Aborted, err.Error())

	case errors.Is(err, kb.ErrGroundNotFound),
		errors.Is(err, store.ErrRunNotFound):
		return status.Error(codes.NotFound, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
