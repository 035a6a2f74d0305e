package apperrors

// Domain errors shared by services and handlers.
var (
	ErrUsernameTaken   = Conflict("username already exists")
	ErrUserNotFound    = NotFound("user not found")
	ErrKeysNotFound    = NotFound("keys not found for this user")
	ErrInvalidPassword = Unauthenticated("invalid username or password")
	ErrUnauthenticated = Unauthenticated("invalid or missing session token")
)

func InternalWrap(msg string, cause error) *AppError {
	return Wrap(CodeInternal, msg, cause)
}
