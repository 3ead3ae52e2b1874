package handler

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/employee-provisioning/internal/core/employee"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// date は YYYY-MM-DD または RFC 3339 形式を受け付ける日付です。
type date struct {
	time.Time
}

func (d *date) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("date must be a string")
	}
	raw = strings.TrimSpace(raw)

	if t, err := time.Parse(dateLayout, raw); err == nil {
		d.Time = t
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		d.Time = t
		return nil
	}
	return fmt.Errorf("invalid date %q", raw)
}

func (d *date) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// optional はキーの有無と null を区別してデコードします。
type optional[T any] struct {
	set   bool
	value *T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.set = true
	if strings.TrimSpace(string(b)) == "null" {
		o.value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.value = &v
	return nil
}

func (o optional[T]) toCore() employee.Optional[T] {
	return employee.Optional[T]{Set: o.set, Value: o.value}
}

func optionalDate(o optional[date]) employee.Optional[time.Time] {
	if !o.set {
		return employee.Optional[time.Time]{}
	}
	if o.value == nil {
		return employee.Null[time.Time]()
	}
	return employee.Some(o.value.Time)
}

type createEmployeeRequest struct {
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	Email       string           `json:"email"`
	Phone       *string          `json:"phone"`
	DateOfBirth *date            `json:"date_of_birth"`
	Gender      *string          `json:"gender"`
	HireDate    *date            `json:"hire_date"`
	JobTitle    *string          `json:"job_title"`
	Salary      *decimal.Decimal `json:"salary"`
	IsActive    *bool            `json:"is_active"`
}

func (r createEmployeeRequest) toInput() employee.CreateEmployeeInput {
	return employee.CreateEmployeeInput{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Phone:       r.Phone,
		DateOfBirth: r.DateOfBirth.ptr(),
		Gender:      r.Gender,
		HireDate:    r.HireDate.ptr(),
		JobTitle:    r.JobTitle,
		Salary:      r.Salary,
		IsActive:    r.IsActive,
	}
}

// updateEmployeeRequest は更新可能なカラムのみを持ちます。それ以外のキーはデコード時に捨てられます。
type updateEmployeeRequest struct {
	FirstName   optional[string]          `json:"first_name"`
	LastName    optional[string]          `json:"last_name"`
	Email       optional[string]          `json:"email"`
	Phone       optional[string]          `json:"phone"`
	DateOfBirth optional[date]            `json:"date_of_birth"`
	Gender      optional[string]          `json:"gender"`
	HireDate    optional[date]            `json:"hire_date"`
	JobTitle    optional[string]          `json:"job_title"`
	Salary      optional[decimal.Decimal] `json:"salary"`
	IsActive    optional[bool]            `json:"is_active"`
}

func (r updateEmployeeRequest) toInput(id string) employee.UpdateEmployeeInput {
	return employee.UpdateEmployeeInput{
		ID:          id,
		FirstName:   r.FirstName.toCore(),
		LastName:    r.LastName.toCore(),
		Email:       r.Email.toCore(),
		Phone:       r.Phone.toCore(),
		DateOfBirth: optionalDate(r.DateOfBirth),
		Gender:      r.Gender.toCore(),
		HireDate:    optionalDate(r.HireDate),
		JobTitle:    r.JobTitle.toCore(),
		Salary:      r.Salary.toCore(),
		IsActive:    r.IsActive.toCore(),
	}
}

type employeeResponse struct {
	EmployeeID  int64     `json:"employee_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Phone       *string   `json:"phone"`
	DateOfBirth *string   `json:"date_of_birth"`
	Gender      *string   `json:"gender"`
	HireDate    string    `json:"hire_date"`
	JobTitle    *string   `json:"job_title"`
	Salary      *string   `json:"salary"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toEmployeeResponse(e *employee.Employee) employeeResponse {
	resp := employeeResponse{
		EmployeeID: e.ID,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Email:      e.Email,
		Phone:      e.Phone,
		Gender:     e.Gender,
		HireDate:   e.HireDate.Format(dateLayout),
		JobTitle:   e.JobTitle,
		IsActive:   e.IsActive,
		CreatedAt:  e.CreatedAt.UTC(),
		UpdatedAt:  e.UpdatedAt.UTC(),
	}
	if e.DateOfBirth != nil {
		dob := e.DateOfBirth.Format(dateLayout)
		resp.DateOfBirth = &dob
	}
	if e.Salary != nil {
		salary := e.Salary.StringFixed(2)
		resp.Salary = &salary
	}
	return resp
}

func toEmployeeResponses(list []*employee.Employee) []employeeResponse {
	out := make([]employeeResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toEmployeeResponse(e))
	}
	return out
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
