package status

const (
	OK                    = "OK"
	CREATED               = "CREATED"
	BAD_REQUEST           = "BAD_REQUEST"
	UNAUTHORIZED          = "UNAUTHORIZED"
	FORBIDDEN             = "FORBIDDEN"
	NOT_FOUND             = "NOT_FOUND"
	CONFLICT              = "CONFLICT"
	UNPROCESSABLE_ENTITY  = "UNPROCESSABLE_ENTITY"
	INTERNAL_SERVER_ERROR = "INTERNAL_SERVER_ERROR"
	SERVICE_UNAVAILABLE   = "SERVICE_UNAVAILABLE"
)

// Allocation engine business-rule statuses.
const (
	ALREADY_PARTICIPATED      = "ALREADY_PARTICIPATED"
	EXHAUSTED                 = "EXHAUSTED"
	INVALID_INVENTORY         = "INVALID_INVENTORY"
	INVALID_REGISTRATION_TIME = "INVALID_REGISTRATION_TIME"
	DEADLINE_PASSED           = "DEADLINE_PASSED"
	PAYMENT_REQUIRED          = "PAYMENT_REQUIRED"
	SCHEDULE_CONFLICT         = "SCHEDULE_CONFLICT"
	CAPACITY_EXCEEDED         = "CAPACITY_EXCEEDED"
	NOT_CANCELLABLE           = "NOT_CANCELLABLE"
)
