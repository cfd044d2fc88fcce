package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrOfficerAccessOnly ErrCode = "OFFICER_ACCESS_ONLY"
	ErrNotOwner          ErrCode = "NOT_OWNER"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidSpec    ErrCode = "INVALID_SPEC"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Assessment lifecycle ──────────────────────────────────────────
	ErrInvalidTransition ErrCode = "INVALID_TRANSITION"
	ErrNotReady          ErrCode = "NOT_READY"
	ErrInFlightAttempts  ErrCode = "IN_FLIGHT_ATTEMPTS"

	// ─── Attempts ──────────────────────────────────────────────────────
	ErrNotAvailable      ErrCode = "NOT_AVAILABLE"
	ErrAlreadyAttempted  ErrCode = "ALREADY_ATTEMPTED"
	ErrAttemptInProgress ErrCode = "ATTEMPT_IN_PROGRESS"
	ErrInvalidState      ErrCode = "INVALID_STATE"
	ErrOutOfRange        ErrCode = "OUT_OF_RANGE"
	ErrResultsWithheld   ErrCode = "RESULTS_WITHHELD"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrOfficerAccessOnly:
		return "This resource is restricted to placement officers."
	case ErrNotOwner:
		return "You are not the owner of this assessment."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrInvalidSpec:
		return "The assessment specification is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Assessment lifecycle ──────────────────────────────────────────
	case ErrInvalidTransition:
		return "The assessment cannot move to the requested state."
	case ErrNotReady:
		return "The assessment has no question bank and cannot be published."
	case ErrInFlightAttempts:
		return "The assessment still has unsubmitted attempts."

	// ─── Attempts ──────────────────────────────────────────────────────
	case ErrNotAvailable:
		return "This assessment is not currently available."
	case ErrAlreadyAttempted:
		return "You have already completed this assessment."
	case ErrAttemptInProgress:
		return "You already have an open attempt for this assessment."
	case ErrInvalidState:
		return "The attempt is not in a state that allows this action."
	case ErrOutOfRange:
		return "The question or option index is out of range."
	case ErrResultsWithheld:
		return "Results for this assessment are not released yet."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
