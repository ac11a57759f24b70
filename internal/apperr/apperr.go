package apperr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind 是领域错误的封闭集合，上层只对 Kind 做分支，不感知存储层错误码。
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindBadRequest
	KindForbidden
)

// Error carries a domain kind plus a caller-facing message. The wrapped cause
// stays available for logging but is never shown to API clients.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) error   { return &Error{Kind: KindNotFound, Msg: msg} }
func BadRequest(msg string) error { return &Error{Kind: KindBadRequest, Msg: msg} }
func Forbidden(msg string) error  { return &Error{Kind: KindForbidden, Msg: msg} }

// Internal 包装底层错误为服务器错误。
func Internal(msg string, cause error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: cause}
}

// KindOf 返回错误的领域类别；非领域错误一律视为 KindInternal。
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Message returns the caller-facing message, or a generic fallback for
// non-domain errors so store internals never leak to clients.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	return "internal error"
}

// IsDomain 判断错误是否已经是领域错误。
func IsDomain(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr)
}

// FromStore translates gorm sentinel errors into domain kinds at the lowest
// layer. Foreign-key violations on insert mean one endpoint of the row is
// missing, hence not-found; duplicate keys mean the caller sent something that
// already exists, hence bad-request. Requires gorm.Config{TranslateError: true}.
func FromStore(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case IsDomain(err):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(notFoundMsg)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return NotFound(notFoundMsg)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return BadRequest("duplicate entry")
	default:
		return Internal("store error", err)
	}
}
