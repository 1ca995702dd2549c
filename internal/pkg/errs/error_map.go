/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
// A zero Status is reported as 200 OK with the business code in the body.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Avatar Upload Errors
	ErrAvatarUploadDisabled: {Code: ErrAvatarUploadDisabled, Message: "Avatar uploads are not available.", Status: http.StatusNotFound},
	ErrAvatarTypeInvalid:    {Code: ErrAvatarTypeInvalid, Message: "Avatar must be a PNG, JPEG, WebP or GIF image."},
	ErrFileSizeTooLarge:     {Code: ErrFileSizeTooLarge, Message: "Avatar must be between 1 byte and %d MB."},

	// 5xxx: Internal System Errors
	ErrUnknown:            {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrHistoryUnavailable: {Code: ErrHistoryUnavailable, Message: "Failed to fetch messages.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed:  {Code: ErrFileStorageFailed, Message: "Avatar upload failed. Please try again.", Status: http.StatusBadGateway},
}
