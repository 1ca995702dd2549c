/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors on the HTTP surface.
The websocket protocol never reports errors to clients; see package chat.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Avatar Upload Errors
const (
	// ErrAvatarUploadDisabled indicates that no object storage is configured for avatars.
	ErrAvatarUploadDisabled = 2001

	// ErrAvatarTypeInvalid indicates an avatar file name or MIME type that is not an accepted image.
	ErrAvatarTypeInvalid = 2002

	// ErrFileSizeTooLarge indicates an avatar larger than the permitted size.
	ErrFileSizeTooLarge = 2003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrHistoryUnavailable indicates that message history could not be read from the store.
	ErrHistoryUnavailable = 5001

	// ErrFileStorageFailed indicates that object storage rejected or failed the request.
	ErrFileStorageFailed = 5002
)
