/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
and in events and responses sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON is malformed.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body exceeded the server limit.
	ErrRequestEntityTooLarge = 1005

	// ErrRateLimitExceeded indicates that the request rate exceeded the set limit.
	ErrRateLimitExceeded = 1006
)

// 2xxx: Messaging Errors
const (
	// ErrMalformedTarget indicates a send whose target is not exactly one of
	// a receiver identity or a group.
	ErrMalformedTarget = 2001

	// ErrEmptyMessage indicates a send with neither content nor attachment.
	ErrEmptyMessage = 2002

	// ErrMessageContentTooLong indicates message content over the length limit.
	ErrMessageContentTooLong = 2003

	// ErrAttachmentInvalid indicates an attachment descriptor that failed validation.
	ErrAttachmentInvalid = 2004
)

// 3xxx: Authentication and Session Errors
const (
	// ErrUnauthenticated indicates a missing or invalid identity credential.
	ErrUnauthenticated = 3001

	// ErrSessionKicked indicates that the connection was closed in favor of a newer one.
	ErrSessionKicked = 3002
)

// 4xxx: Social and Authorization Errors
const (
	// ErrNotAuthorized indicates a relationship-gate failure, or a relationship
	// transition attempted by the wrong party.
	ErrNotAuthorized = 4001

	// ErrNotAMember indicates a group operation by a non-member.
	ErrNotAMember = 4002

	// ErrDuplicateRequest indicates a friend request for a pair that already has one.
	ErrDuplicateRequest = 4003

	// ErrNotFound indicates that the referenced user, group, or listing does not exist.
	ErrNotFound = 4004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified internal server error.
	ErrUnknown = 5000

	// ErrPersistenceFailure indicates that the backing store rejected or failed a write.
	ErrPersistenceFailure = 5001

	// ErrFileStorageFailed indicates an object-storage (presign) failure.
	ErrFileStorageFailed = 5002
)
