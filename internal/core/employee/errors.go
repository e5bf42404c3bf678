package employee

import "errors"

var (
	// ErrEmployeeNotFound は社員が存在しない場合に返却されます。
	ErrEmployeeNotFound = errors.New("Employee Does not exists")
	// ErrEmployeeAlreadyExists はメールアドレスが既に使われている場合に返却されます。
	ErrEmployeeAlreadyExists = errors.New("Employee Already exists")

	ErrInvalidFirstName = errors.New("employee: invalid first name")
	ErrInvalidLastName  = errors.New("employee: invalid last name")
	ErrInvalidEmail     = errors.New("employee: invalid email")
	ErrInvalidAge       = errors.New("employee: invalid age")
)
