package handler

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/rl1809/restopos/internal/core/domain"
)

// failure is the transport-neutral reading of a service error.
type failure struct {
	httpStatus int
	grpcCode   codes.Code
	code       string
	message    string
}

func classify(err error) failure {
	var (
		verr *domain.ValidationError
		derr *domain.DomainError
		perr *domain.PaymentError
		cerr *domain.ConsistencyError
	)

	switch {
	case errors.As(err, &cerr):
		return failure{http.StatusInternalServerError, codes.DataLoss, "consistency_failure", err.Error()}

	case errors.As(err, &verr):
		f := failure{http.StatusBadRequest, codes.InvalidArgument, verr.Code, verr.Error()}
		switch verr.Code {
		case domain.CodeTableOccupied:
			f.httpStatus, f.grpcCode = http.StatusConflict, codes.FailedPrecondition
		case domain.CodeStoreFailure:
			f.httpStatus, f.grpcCode = http.StatusServiceUnavailable, codes.Unavailable
		}
		return f

	case errors.As(err, &derr):
		f := failure{http.StatusConflict, codes.FailedPrecondition, derr.Code, derr.Error()}
		switch derr.Code {
		case domain.CodeOrderNotFound:
			f.httpStatus, f.grpcCode = http.StatusNotFound, codes.NotFound
		case domain.CodeForbidden:
			f.httpStatus, f.grpcCode = http.StatusForbidden, codes.PermissionDenied
		case domain.CodeStatusConflict:
			f.grpcCode = codes.Aborted
		case domain.CodeStoreFailure:
			f.httpStatus, f.grpcCode = http.StatusServiceUnavailable, codes.Unavailable
		}
		return f

	case errors.As(err, &perr):
		f := failure{http.StatusConflict, codes.FailedPrecondition, perr.Code, perr.Error()}
		switch perr.Code {
		case domain.CodeAlreadyPaid:
			f.grpcCode = codes.AlreadyExists
		case domain.CodeInsufficientFunds:
			f.httpStatus = http.StatusUnprocessableEntity
		case domain.CodePaymentInProgress:
			f.grpcCode = codes.Aborted
		case domain.CodeStoreFailure:
			f.httpStatus, f.grpcCode = http.StatusServiceUnavailable, codes.Unavailable
		}
		return f
	}

	return failure{http.StatusInternalServerError, codes.Internal, "internal", "internal error"}
}
