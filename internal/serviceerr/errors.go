// Package serviceerr holds the error catalogue shared by the client packages.
package serviceerr

// Code is a machine readable error code.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeInvalidSession     Code = "invalid_session"
	CodeSessionTerminated  Code = "session_terminated"
	CodeNoData             Code = "no_data"
	CodeNotAdmin           Code = "not_admin"
	CodeOTPRequired        Code = "otp_required"
	CodeUnsupportedStorage Code = "unsupported_storage"
)

type Error struct {
	Err         Code
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Err)
	}

	return string(e.Err) + ": " + e.Description
}

var (
	ErrNotFound           = &Error{Err: CodeNotFound, Description: "not found"}
	ErrPartialSession     = &Error{Err: CodeInvalidSession, Description: "session must carry both tokens or neither"}
	ErrSessionTerminated  = &Error{Err: CodeSessionTerminated, Description: "session terminated, login required"}
	ErrNoData             = &Error{Err: CodeNoData, Description: "response envelope carries no data"}
	ErrNotAdmin           = &Error{Err: CodeNotAdmin, Description: "account is not an administrator"}
	ErrOTPRequired        = &Error{Err: CodeOTPRequired, Description: "account verification required"}
	ErrUnsupportedStorage = &Error{Err: CodeUnsupportedStorage}
)
