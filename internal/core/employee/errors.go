package employee

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidID             = errors.New("employee: id must be an integer")
	ErrMissingRequiredFields = errors.New("employee: missing required fields")
	ErrInvalidField          = errors.New("employee: invalid field value")
	ErrNoUpdatableFields     = errors.New("employee: no valid fields provided for update")
	ErrEmployeeNotFound      = errors.New("employee: not found")
	ErrFaceEnrollmentFailed  = errors.New("employee: face enrollment failed")
	ErrStore                 = errors.New("employee: store failure")
)

// MissingFieldsError は必須項目の欠落をすべて列挙します。
type MissingFieldsError struct {
	Fields []Field
}

func (e *MissingFieldsError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return fmt.Sprintf("%s: %s", ErrMissingRequiredFields.Error(), strings.Join(names, ", "))
}

func (e *MissingFieldsError) Is(target error) bool {
	return target == ErrMissingRequiredFields
}

// InvalidFieldError は不正な値が指定されたカラムを表します。
type InvalidFieldError struct {
	Field  Field
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidField.Error(), e.Field, e.Reason)
}

func (e *InvalidFieldError) Is(target error) bool {
	return target == ErrInvalidField
}

// EnrollmentError は外部顔登録の失敗を終了コード付きで表します。
type EnrollmentError struct {
	DisplayName string
	ExitCode    int
}

func (e *EnrollmentError) Error() string {
	return fmt.Sprintf("%s for %q (exit code %d)", ErrFaceEnrollmentFailed.Error(), e.DisplayName, e.ExitCode)
}

func (e *EnrollmentError) Is(target error) bool {
	return target == ErrFaceEnrollmentFailed
}

// StoreError は永続化層の失敗を包みます。詳細はログ用で、利用者には返しません。
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStore.Error(), e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}
