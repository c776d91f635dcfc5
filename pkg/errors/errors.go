package errors

import (
	"net/http"

	"github.com/membertown/mt-allocation/pkg/status"
)

// ApplicationError carries the HTTP status code and application status
// alongside the user-facing message, so handlers can destruct it at the
// boundary without switching on error values.
type ApplicationError struct {
	HTTPStatusCode int
	Status         string
	Message        string
}

func (e ApplicationError) Error() string {
	return e.Message
}

func New(httpStatusCode int, status string, message string) error {
	return ApplicationError{
		HTTPStatusCode: httpStatusCode,
		Status:         status,
		Message:        message,
	}
}

// Destruct unwraps err into an ApplicationError. Unknown errors are treated
// as internal server errors.
func Destruct(err error) ApplicationError {
	ae, ok := err.(ApplicationError)
	if !ok {
		return ApplicationError{
			HTTPStatusCode: http.StatusInternalServerError,
			Status:         status.INTERNAL_SERVER_ERROR,
			Message:        err.Error(),
		}
	}

	return ae
}
