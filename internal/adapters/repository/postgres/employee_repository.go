package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/employee-provisioning/internal/core/employee"
	pgdb "github.com/ogurasousui/employee-provisioning/internal/platform/db/postgres"
	"github.com/shopspring/decimal"
)

const employeeColumns = `employee_id, first_name, last_name, email, phone, date_of_birth, gender, hire_date, job_title, salary, is_active, created_at, updated_at`

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Create は社員を新規作成し、採番された employee_id を含む行を返します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employee (first_name, last_name, email, phone, date_of_birth, gender, hire_date, job_title, salary, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING `+employeeColumns,
		e.FirstName,
		e.LastName,
		e.Email,
		nullableString(e.Phone),
		nullableDate(e.DateOfBirth),
		nullableString(e.Gender),
		dateValue(e.HireDate),
		nullableString(e.JobTitle),
		nullableDecimal(e.Salary),
		e.IsActive,
		e.CreatedAt,
		e.UpdatedAt,
	)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// Update は指定カラムと updated_at を 1 文で更新します。
func (r *EmployeeRepository) Update(ctx context.Context, id int64, changes []employee.Change, updatedAt time.Time) (*employee.Employee, error) {
	if len(changes) == 0 {
		return nil, employee.ErrNoUpdatableFields
	}

	setClauses := make([]string, 0, len(changes)+1)
	args := make([]any, 0, len(changes)+2)
	for _, c := range changes {
		if !employee.IsUpdatable(c.Field) {
			return nil, fmt.Errorf("postgres: column %q is not updatable", c.Field)
		}
		args = append(args, changeValue(c.Value))
		setClauses = append(setClauses, string(c.Field)+" = $"+strconv.Itoa(len(args)))
	}

	args = append(args, updatedAt)
	setClauses = append(setClauses, "updated_at = $"+strconv.Itoa(len(args)))
	args = append(args, id)
	idPlaceholder := "$" + strconv.Itoa(len(args))

	query := `UPDATE employee SET ` + strings.Join(setClauses, ", ") +
		` WHERE employee_id = ` + idPlaceholder +
		` RETURNING ` + employeeColumns

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	updated, err := scanEmployee(exec.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return updated, nil
}

// Delete は社員を削除します。該当行がなければ ErrEmployeeNotFound を返します。
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employee WHERE employee_id = $1`, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id int64) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employee WHERE employee_id = $1`, id)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// List は全社員を employee_id の昇順で取得します。
func (r *EmployeeRepository) List(ctx context.Context) ([]*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `SELECT `+employeeColumns+` FROM employee ORDER BY employee_id`)
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

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		id          int64
		firstName   string
		lastName    string
		email       string
		phone       sql.NullString
		dateOfBirth sql.NullTime
		gender      sql.NullString
		hireDate    time.Time
		jobTitle    sql.NullString
		salary      decimal.NullDecimal
		isActive    bool
		createdAt   time.Time
		updatedAt   time.Time
	)

	if err := row.Scan(
		&id,
		&firstName,
		&lastName,
		&email,
		&phone,
		&dateOfBirth,
		&gender,
		&hireDate,
		&jobTitle,
		&salary,
		&isActive,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	emp := &employee.Employee{
		ID:        id,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Phone:     stringPtr(phone),
		Gender:    stringPtr(gender),
		HireDate:  dateValue(hireDate),
		JobTitle:  stringPtr(jobTitle),
		IsActive:  isActive,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if dateOfBirth.Valid {
		dob := dateValue(dateOfBirth.Time)
		emp.DateOfBirth = &dob
	}
	if salary.Valid {
		s := salary.Decimal
		emp.Salary = &s
	}
	return emp, nil
}

// translateEmployeePgError は not found のみをドメインエラーに変換します。
// 制約違反などその他のエラーはそのまま返し、ユースケース層でストアエラーとして扱います。
func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}
	return err
}

func changeValue(v any) any {
	switch value := v.(type) {
	case time.Time:
		return dateValue(value)
	case decimal.Decimal:
		return value.String()
	default:
		return value
	}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableDate(v *time.Time) any {
	if v == nil {
		return nil
	}
	return dateValue(*v)
}

func nullableDecimal(v *decimal.Decimal) any {
	if v == nil {
		return nil
	}
	return v.String()
}

func dateValue(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
