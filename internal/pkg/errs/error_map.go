/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to CustomError templates, used to
standardize HTTP responses, socket error events, and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Messaging Errors
	ErrMalformedTarget:       {Code: ErrMalformedTarget, Message: "A message needs exactly one recipient: a user or a group.", Status: http.StatusBadRequest},
	ErrEmptyMessage:          {Code: ErrEmptyMessage, Message: "A message needs text or an attachment.", Status: http.StatusBadRequest},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long.", Status: http.StatusBadRequest},
	ErrAttachmentInvalid:     {Code: ErrAttachmentInvalid, Message: "Invalid attachment.", Status: http.StatusBadRequest},

	// 3xxx: Authentication and Session Errors
	ErrUnauthenticated: {Code: ErrUnauthenticated, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrSessionKicked:   {Code: ErrSessionKicked, Message: "You were signed in on another device."},

	// 4xxx: Social and Authorization Errors
	ErrNotAuthorized:    {Code: ErrNotAuthorized, Message: "You are not allowed to do that.", Status: http.StatusForbidden},
	ErrNotAMember:       {Code: ErrNotAMember, Message: "You are not a member of this group.", Status: http.StatusForbidden},
	ErrDuplicateRequest: {Code: ErrDuplicateRequest, Message: "A friend request already exists for this user.", Status: http.StatusConflict},
	ErrNotFound:         {Code: ErrNotFound, Message: "Not found.", Status: http.StatusNotFound},

	// 5xxx: Internal System Errors
	ErrUnknown:            {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrPersistenceFailure: {Code: ErrPersistenceFailure, Message: "Could not save right now. Please try again.", Status: http.StatusServiceUnavailable},
	ErrFileStorageFailed:  {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},
}
