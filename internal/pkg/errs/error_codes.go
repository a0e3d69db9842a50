/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body could not be parsed as JSON.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained trailing data.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates that form data could not be processed.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that the request body exceeded the size limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates the client sent too many requests.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Channel and Content Business Logic Errors
const (
	// ErrChannelNotFound indicates the requested channel does not exist or is not visible.
	ErrChannelNotFound = 2101

	// ErrChannelNameExists indicates the user already owns a channel with that name.
	ErrChannelNameExists = 2102

	// ErrAlreadyMember indicates the user is already a member of the channel.
	ErrAlreadyMember = 2103

	// ErrBannedFromChannel indicates the user is banned from the channel.
	ErrBannedFromChannel = 2104

	// ErrNotMember indicates the user is not a member of the channel.
	ErrNotMember = 2105

	// ErrMessageContentTooLong indicates the message content exceeded the maximum length.
	ErrMessageContentTooLong = 2201

	// ErrMessageNotFound indicates the requested message does not exist in the channel.
	ErrMessageNotFound = 2202

	// ErrInvitationInvalid indicates the invitation token is unknown or expired.
	ErrInvitationInvalid = 2301
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrUnauthorized indicates the request lacks a valid authenticated identity.
	ErrUnauthorized = 3001

	// ErrForbidden indicates the authenticated user may not perform the operation.
	ErrForbidden = 3002

	// ErrAlreadyLoggedIn indicates a registration or login attempt from an authenticated session.
	ErrAlreadyLoggedIn = 3003

	// ErrInvalidUsername indicates the username does not meet the format requirements.
	ErrInvalidUsername = 3101

	// ErrInvalidPassword indicates the password does not meet the length requirements.
	ErrInvalidPassword = 3102

	// ErrUserAlreadyExists indicates the username is taken.
	ErrUserAlreadyExists = 3103

	// ErrInvalidCredentials indicates an unknown username or wrong password.
	ErrInvalidCredentials = 3104

	// ErrUserNotFound indicates the referenced account does not exist.
	ErrUserNotFound = 3105

	// ErrCannotBanSelf indicates an attempt to ban one's own account.
	ErrCannotBanSelf = 3201

	// ErrCannotBanAdmin indicates an attempt to ban a channel admin or a non-member.
	ErrCannotBanAdmin = 3202
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates the avatar storage service rejected the operation.
	ErrFileStorageFailed = 5001
)
