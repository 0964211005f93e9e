package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam session ──────────────────────────────────────────────────
	ErrUnknownExamType    ErrCode = "UNKNOWN_EXAM_TYPE"
	ErrSessionCompleted   ErrCode = "SESSION_COMPLETED"
	ErrSectionLocked      ErrCode = "SECTION_LOCKED"
	ErrSectionMismatch    ErrCode = "SECTION_MISMATCH"
	ErrFinalizeFailed     ErrCode = "FINALIZE_FAILED"
	ErrQuestionNotInExam  ErrCode = "QUESTION_NOT_IN_EXAM"
	ErrDuplicateQuestion  ErrCode = "DUPLICATE_QUESTION_NUMBER"
	ErrInvalidOptionIndex ErrCode = "INVALID_OPTION_INDEX"
	ErrSectionNotInExam   ErrCode = "SECTION_NOT_IN_EXAM"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionInvalidated:
		return "Your session has ended. Please sign in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have access to this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Exam session ──────────────────────────────────────────────────
	case ErrUnknownExamType:
		return "This exam type is not available."
	case ErrSessionCompleted:
		return "This exam session is already completed."
	case ErrSectionLocked:
		return "This section has been completed and can no longer be changed."
	case ErrSectionMismatch:
		return "This question is not part of the current section."
	case ErrFinalizeFailed:
		return "We could not submit your exam. Please try again."
	case ErrQuestionNotInExam:
		return "This question does not belong to the exam."
	case ErrDuplicateQuestion:
		return "A question with this number already exists in the exam."
	case ErrInvalidOptionIndex:
		return "The correct option index is outside the options list."
	case ErrSectionNotInExam:
		return "The exam has no section with this number."

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
