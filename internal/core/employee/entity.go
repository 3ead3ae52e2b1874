package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee は社員エンティティです。
type Employee struct {
	ID          int64
	FirstName   string
	LastName    string
	Email       string
	Phone       *string
	DateOfBirth *time.Time
	Gender      *string
	HireDate    time.Time
	JobTitle    *string
	Salary      *decimal.Decimal
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// displayName は顔登録に使用する表示名です。
func displayName(firstName, lastName string) string {
	return firstName + " " + lastName
}

// Field は更新可能なカラムを表します。
type Field string

const (
	FieldFirstName   Field = "first_name"
	FieldLastName    Field = "last_name"
	FieldEmail       Field = "email"
	FieldPhone       Field = "phone"
	FieldDateOfBirth Field = "date_of_birth"
	FieldGender      Field = "gender"
	FieldHireDate    Field = "hire_date"
	FieldJobTitle    Field = "job_title"
	FieldSalary      Field = "salary"
	FieldIsActive    Field = "is_active"
)

// UpdatableFields は更新操作で変更できるカラムの固定リストです。順序は SQL 生成時にも使われます。
var UpdatableFields = []Field{
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldPhone,
	FieldDateOfBirth,
	FieldGender,
	FieldHireDate,
	FieldJobTitle,
	FieldSalary,
	FieldIsActive,
}

// IsUpdatable は field が更新可能なカラムかを判定します。
func IsUpdatable(field Field) bool {
	for _, f := range UpdatableFields {
		if f == field {
			return true
		}
	}
	return false
}

// Change は 1 カラム分の更新内容です。Value が nil の場合は NULL を設定します。
type Change struct {
	Field Field
	Value any
}

// Optional はリクエストに含まれていたかどうかを区別できる値です。
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some は値を持つ Optional を返します。
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null は明示的に NULL を指定する Optional を返します。
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}
