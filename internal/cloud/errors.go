package cloud

import (
	"errors"

	"github.com/aws/smithy-go"

	"qs-rls-manager/internal/domain"
)

// classify converts an SDK error into a *domain.ServiceError keyed by the
// service-reported error name. Errors without an API error code (transport
// failures, cancelled contexts) are wrapped as InternalFailure.
func classify(service, op string, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return &domain.ServiceError{
			Service: service,
			Op:      op,
			Code:    code,
			Status:  domain.StatusForErrorName(code),
			Message: apiErr.ErrorMessage(),
		}
	}
	return &domain.ServiceError{
		Service: service,
		Op:      op,
		Code:    "InternalFailure",
		Status:  domain.StatusForErrorName("InternalFailure"),
		Message: err.Error(),
	}
}
