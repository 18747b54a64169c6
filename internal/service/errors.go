package service

import "errors"

// Code is a stable, client-visible business error identifier.
type Code string

const (
	CodeUsernameReserved     Code = "USERNAME_RESERVED"
	CodeUsernameTaken        Code = "USERNAME_TAKEN"
	CodeUsernameInvalid      Code = "USERNAME_INVALID"
	CodeAlreadyHasBiolink    Code = "ALREADY_HAS_BIOLINK"
	CodeNotFound             Code = "NOT_FOUND"
	CodeForbidden            Code = "FORBIDDEN"
	CodePremiumRequired      Code = "PREMIUM_REQUIRED"
	CodeInvalidTitle         Code = "INVALID_TITLE"
	CodeInvalidURL           Code = "INVALID_URL"
	CodeInvalidEmoji         Code = "INVALID_EMOJI"
	CodeMaxLinksReached      Code = "MAX_LINKS_REACHED"
	CodeInvalidReorder       Code = "INVALID_REORDER"
	CodeInvalidTheme         Code = "INVALID_THEME"
	CodeInvalidColor         Code = "INVALID_COLOR"
	CodeInvalidGA4ID         Code = "INVALID_GA4_ID"
	CodeInvalidDomain        Code = "INVALID_DOMAIN"
	CodeDomainTaken          Code = "DOMAIN_TAKEN"
	CodeNoDomain             Code = "NO_DOMAIN"
	CodeOwnershipNotVerified Code = "OWNERSHIP_NOT_VERIFIED"
	CodeHostingError         Code = "HOSTING_ERROR"
	CodeInvalidFeedback      Code = "INVALID_FEEDBACK"
	CodeUnknownIntent        Code = "UNKNOWN_INTENT"
)

// Error is an expected business-rule failure. Anything else returned by a
// service is an internal error.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Msg
}

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

var (
	ErrUsernameReserved     = newError(CodeUsernameReserved, "this username is reserved")
	ErrUsernameTaken        = newError(CodeUsernameTaken, "this username is already taken")
	ErrUsernameInvalid      = newError(CodeUsernameInvalid, "usernames are 3-20 characters: a-z, 0-9, _ and -")
	ErrAlreadyHasBiolink    = newError(CodeAlreadyHasBiolink, "you already have a biolink")
	ErrNotFound             = newError(CodeNotFound, "not found")
	ErrForbidden            = newError(CodeForbidden, "you do not own this resource")
	ErrPremiumRequired      = newError(CodePremiumRequired, "this feature requires premium")
	ErrInvalidTitle         = newError(CodeInvalidTitle, "titles are 1-50 characters")
	ErrInvalidURL           = newError(CodeInvalidURL, "enter a valid http or https URL")
	ErrInvalidEmoji         = newError(CodeInvalidEmoji, "emoji is too long")
	ErrMaxLinksReached      = newError(CodeMaxLinksReached, "you have reached the maximum number of links")
	ErrInvalidReorder       = newError(CodeInvalidReorder, "reorder must list every link exactly once")
	ErrInvalidTheme         = newError(CodeInvalidTheme, "unknown theme")
	ErrInvalidColor         = newError(CodeInvalidColor, "colors must look like #1a2b3c")
	ErrInvalidGA4ID         = newError(CodeInvalidGA4ID, "measurement ids look like G-XXXXXXX")
	ErrInvalidDomain        = newError(CodeInvalidDomain, "enter a valid domain you own")
	ErrDomainTaken          = newError(CodeDomainTaken, "this domain is used by another biolink")
	ErrNoDomain             = newError(CodeNoDomain, "no custom domain set")
	ErrOwnershipNotVerified = newError(CodeOwnershipNotVerified, "verify domain ownership first")
	ErrHostingError         = newError(CodeHostingError, "the hosting provider rejected the request, try again")
	ErrInvalidFeedback      = newError(CodeInvalidFeedback, "feedback needs an emoji or a comment")
	ErrUnknownIntent        = newError(CodeUnknownIntent, "unknown action")
)

// CodeOf returns the business code carried by err, or "" for internal errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
