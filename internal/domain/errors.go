package domain

import "errors"

// Kind classifies a failure so the transport layer can map it without string matching.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindValidation     Kind = "validation"
	KindUnexpected     Kind = "unexpected"
)

// Error is a user-facing failure carrying a stable kind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewError builds a one-off error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf reports the kind of err, defaulting to KindUnexpected.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnexpected
}

var (
	// ErrUnauthenticated is returned when no usable bearer token accompanies a request.
	ErrUnauthenticated = NewError(KindAuthentication, "No token provided, authorization denied")
	// ErrInvalidToken covers malformed, expired and badly signed tokens.
	ErrInvalidToken = NewError(KindAuthentication, "Token is invalid or expired")
	// ErrInvalidCredentials is returned by login for unknown emails and wrong passwords alike.
	ErrInvalidCredentials = NewError(KindAuthentication, "Invalid email or password")
	// ErrRoleRequired is returned when the caller's role is not allowed on a route.
	ErrRoleRequired = NewError(KindAuthorization, "Forbidden: insufficient role for this action")

	ErrEmailTaken   = NewError(KindConflict, "User already exists with this email")
	ErrUserNotFound = NewError(KindNotFound, "User not found")

	ErrQuizNotFound    = NewError(KindNotFound, "Quiz not found")
	ErrQuizAccess      = NewError(KindAuthorization, "Access denied to this quiz")
	ErrResultNotFound  = NewError(KindNotFound, "Result not found")
	ErrResultForbidden = NewError(KindAuthorization, "Not authorized to view this result")

	ErrContestNotFound   = NewError(KindNotFound, "Contest not found")
	ErrContestInactive   = NewError(KindConflict, "Contest is not active")
	ErrContestNotStarted = NewError(KindConflict, "Contest has not started yet")
	ErrContestEnded      = NewError(KindConflict, "Contest has ended")
	ErrContestFull       = NewError(KindConflict, "Contest has reached maximum participants")
	ErrAlreadyAttempted  = NewError(KindConflict, "You have already attempted this contest")
	ErrAlreadySubmitted  = NewError(KindConflict, "You have already submitted this contest")
	ErrContestLocked     = NewError(KindConflict, "Cannot edit contest after it has started. You can only edit contests before they begin.")
	ErrContestNotEnded   = NewError(KindAuthorization, "Contest has not ended yet. Results will be available after the contest ends.")
	ErrLeaderboardHidden = NewError(KindAuthorization, "Leaderboard is available after the contest ends")
	ErrInvalidTimeWindow = NewError(KindValidation, "End time must be after start time")
	ErrNoQuestions       = NewError(KindValidation, "At least one question is required")
	ErrDurationTooLong   = NewError(KindValidation, "Duration cannot exceed 1440 minutes")
	ErrUnsupportedImage  = NewError(KindValidation, "Unsupported image format; use jpeg, png, gif or webp")
	ErrImageTooLarge     = NewError(KindValidation, "Image exceeds the 5 MB limit")
	ErrImageDimensions   = NewError(KindValidation, "Image dimensions exceed 40 megapixels")
	ErrMissingImage      = NewError(KindValidation, "No image file provided")
)

// Validation builds an ad-hoc validation failure.
func Validation(message string) *Error {
	return NewError(KindValidation, message)
}
