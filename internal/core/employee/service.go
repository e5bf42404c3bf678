package employee

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Service は社員のライフサイクルに関するユースケースをまとめます。
// 状態は保持せず、すべての操作でリポジトリから読み直します。
type Service struct {
	repo Repository
	tx   TransactionManager
}

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	ListEmployees(ctx context.Context) ([]*Employee, error)
	GetEmployee(ctx context.Context, id int64) (*Employee, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error)
	DeleteEmployee(ctx context.Context, id int64) (*Employee, error)
	FindEmployeeByNames(ctx context.Context, firstName, lastName string) (*Employee, error)
	FindEmployeeByAge(ctx context.Context, age int) (*Employee, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, tx TransactionManager) *Service {
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, tx: tx}
}

// CreateEmployeeInput は社員作成時の入力です。
type CreateEmployeeInput struct {
	FirstName string
	LastName  string
	Email     string
	Age       int
}

// UpdateEmployeeInput は社員更新時の入力です。ID 以外の項目はすべて上書きされます。
type UpdateEmployeeInput struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Age       int
}

// CreateEmployee は新しい社員を作成します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	emp, err := normalizeEmployee(in.FirstName, in.LastName, in.Email, in.Age)
	if err != nil {
		return nil, err
	}

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureEmailNotExists(txCtx, emp.Email); err != nil {
			return err
		}

		result, err := s.repo.Save(txCtx, emp)
		if err != nil {
			if errors.Is(err, ErrEmployeeAlreadyExists) {
				return alreadyExistsError(emp.Email)
			}
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// ListEmployees は全社員を ID 昇順で返します。
func (s *Service) ListEmployees(ctx context.Context) ([]*Employee, error) {
	var employees []*Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindAll(txCtx)
		if err != nil {
			return err
		}
		employees = result
		return nil
	}); err != nil {
		return nil, err
	}

	if employees == nil {
		employees = []*Employee{}
	}
	return employees, nil
}

// GetEmployee は ID で社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, id int64) (*Employee, error) {
	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.findExisting(txCtx, id)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateEmployee は既存社員の氏名・メールアドレス・年齢を置き換えます。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error) {
	var updated *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.findExisting(txCtx, in.ID)
		if err != nil {
			return err
		}

		replacement, err := normalizeEmployee(in.FirstName, in.LastName, in.Email, in.Age)
		if err != nil {
			return err
		}
		replacement.ID = existing.ID

		result, err := s.repo.Save(txCtx, replacement)
		if err != nil {
			switch {
			case errors.Is(err, ErrEmployeeAlreadyExists):
				return alreadyExistsError(replacement.Email)
			case errors.Is(err, ErrEmployeeNotFound):
				return notFoundError(existing.ID)
			default:
				return err
			}
		}

		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteEmployee は社員を削除し、削除直前の内容を返します。
func (s *Service) DeleteEmployee(ctx context.Context, id int64) (*Employee, error) {
	var deleted *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.findExisting(txCtx, id)
		if err != nil {
			return err
		}

		if err := s.repo.DeleteByID(txCtx, id); err != nil {
			if errors.Is(err, ErrEmployeeNotFound) {
				return notFoundError(id)
			}
			return err
		}

		deleted = existing
		return nil
	}); err != nil {
		return nil, err
	}

	return deleted, nil
}

// FindEmployeeByNames は氏名で社員を検索します。
func (s *Service) FindEmployeeByNames(ctx context.Context, firstName, lastName string) (*Employee, error) {
	first, err := normalizeName(firstName, ErrInvalidFirstName)
	if err != nil {
		return nil, err
	}
	last, err := normalizeName(lastName, ErrInvalidLastName)
	if err != nil {
		return nil, err
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByNames(txCtx, first, last)
		if err != nil {
			if errors.Is(err, ErrEmployeeNotFound) {
				return fmt.Errorf("%w with given names: %s %s", ErrEmployeeNotFound, first, last)
			}
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// FindEmployeeByAge は年齢で社員を検索します。
func (s *Service) FindEmployeeByAge(ctx context.Context, age int) (*Employee, error) {
	if age < 0 {
		return nil, ErrInvalidAge
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByAge(txCtx, age)
		if err != nil {
			if errors.Is(err, ErrEmployeeNotFound) {
				return fmt.Errorf("%w with given age: %d", ErrEmployeeNotFound, age)
			}
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Service) findExisting(ctx context.Context, id int64) (*Employee, error) {
	emp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			return nil, notFoundError(id)
		}
		return nil, err
	}
	if emp == nil {
		return nil, notFoundError(id)
	}
	return emp, nil
}

func (s *Service) ensureEmailNotExists(ctx context.Context, email string) error {
	emp, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrEmployeeNotFound) {
		return err
	}
	if emp != nil {
		return alreadyExistsError(email)
	}
	return nil
}

func notFoundError(id int64) error {
	return fmt.Errorf("%w with given id: %d", ErrEmployeeNotFound, id)
}

func alreadyExistsError(email string) error {
	return fmt.Errorf("%w with given email: %s", ErrEmployeeAlreadyExists, email)
}

func normalizeEmployee(firstName, lastName, email string, age int) (*Employee, error) {
	first, err := normalizeName(firstName, ErrInvalidFirstName)
	if err != nil {
		return nil, err
	}

	last, err := normalizeName(lastName, ErrInvalidLastName)
	if err != nil {
		return nil, err
	}

	addr, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	if age < 0 {
		return nil, ErrInvalidAge
	}

	return &Employee{FirstName: first, LastName: last, Email: addr, Age: age}, nil
}

func normalizeName(raw string, invalid error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", invalid
	}
	return trimmed, nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidEmail
	}

	// 表示名やコメント付きの形式は受け付けず、送られた値をそのまま保存します。
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Name != "" || addr.Address != trimmed {
		return "", ErrInvalidEmail
	}

	return trimmed, nil
}
