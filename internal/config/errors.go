package config

import (
	"errors"
	"fmt"
)

// ErrInvalid 标记所有校验失败，调用方可用 errors.Is 区分配置错误与 I/O 错误。
var ErrInvalid = errors.New("invalid config")

// FieldError 指出具体字段及原因，例如 Global.AllowOrigins[1]。
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e FieldError) Unwrap() error {
	return ErrInvalid
}

func newFieldError(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}

func indexedField(field string, index int) string {
	return fmt.Sprintf("%s[%d]", field, index)
}
