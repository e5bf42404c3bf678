package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/codex-employee-api/internal/core/employee"
	pgdb "github.com/ogurasousui/codex-employee-api/internal/platform/db/postgres"
)

const (
	employeeUniqueViolationCode = "23505"
	employeeCheckViolationCode  = "23514"

	employeeEmailConstraint = "employees_email_key"
	employeeAgeConstraint   = "employees_age_check"
)

const employeeColumns = `id, first_name, last_name, email, age`

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id int64) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE id = $1
    `, id)

	return r.scanOne(row)
}

// FindByEmail はメールアドレスで社員を取得します。
func (r *EmployeeRepository) FindByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE email = $1
         LIMIT 1
    `, email)

	return r.scanOne(row)
}

// FindByNames は氏名で社員を取得します。複数一致した場合は ID が最小のものを返します。
func (r *EmployeeRepository) FindByNames(ctx context.Context, firstName, lastName string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE first_name = $1 AND last_name = $2
         ORDER BY id ASC
         LIMIT 1
    `, firstName, lastName)

	return r.scanOne(row)
}

// FindByAge は年齢で社員を取得します。複数一致した場合は ID が最小のものを返します。
func (r *EmployeeRepository) FindByAge(ctx context.Context, age int) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE age = $1
         ORDER BY id ASC
         LIMIT 1
    `, age)

	return r.scanOne(row)
}

// FindAll は全社員を ID 昇順で取得します。
func (r *EmployeeRepository) FindAll(ctx context.Context) ([]*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         ORDER BY id ASC
    `)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, translateEmployeePgError(err)
		}
		employees = append(employees, emp)
	}

	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}

	return employees, nil
}

// Save は ID が未採番なら INSERT、採番済みなら UPDATE を行います。
func (r *EmployeeRepository) Save(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	if e.ID == 0 {
		return r.insert(ctx, e)
	}
	return r.update(ctx, e)
}

func (r *EmployeeRepository) insert(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employees (first_name, last_name, email, age)
        VALUES ($1, $2, $3, $4)
        RETURNING `+employeeColumns+`
    `,
		e.FirstName,
		e.LastName,
		e.Email,
		e.Age,
	)

	return r.scanOne(row)
}

func (r *EmployeeRepository) update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE employees
           SET first_name = $1,
               last_name = $2,
               email = $3,
               age = $4
         WHERE id = $5
        RETURNING `+employeeColumns+`
    `,
		e.FirstName,
		e.LastName,
		e.Email,
		e.Age,
		e.ID,
	)

	return r.scanOne(row)
}

// DeleteByID は社員を削除します。
func (r *EmployeeRepository) DeleteByID(ctx context.Context, id int64) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

func (r *EmployeeRepository) scanOne(row pgx.Row) (*employee.Employee, error) {
	emp, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return emp, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		id        int64
		firstName string
		lastName  string
		email     string
		age       int32
	)

	if err := row.Scan(&id, &firstName, &lastName, &email, &age); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	return &employee.Employee{
		ID:        id,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Age:       int(age),
	}, nil
}

func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case employeeUniqueViolationCode:
			if pgErr.ConstraintName == "" || pgErr.ConstraintName == employeeEmailConstraint {
				return employee.ErrEmployeeAlreadyExists
			}
		case employeeCheckViolationCode:
			if pgErr.ConstraintName == "" || pgErr.ConstraintName == employeeAgeConstraint {
				return employee.ErrInvalidAge
			}
		}
	}

	return err
}
