package employee

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ogurasousui/employee-provisioning/internal/platform/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

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

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error)
	ListEmployees(ctx context.Context) ([]*Employee, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error)
	DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error
}

// Service は顔登録と社員レコード永続化の順序を調停します。
// リクエスト間で状態を保持しません。
type Service struct {
	repo     Repository
	enroller Enroller
	clock    Clock
	tx       TransactionManager
	logger   *zap.Logger
}

// NewService は Service を生成します。clock, tx, log は nil の場合デフォルトを使用します。
func NewService(repo Repository, enroller Enroller, clock Clock, tx TransactionManager, log *zap.Logger) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if log == nil {
		log = zap.L()
	}
	return &Service{
		repo:     repo,
		enroller: enroller,
		clock:    clock,
		tx:       tx,
		logger:   log.Named("employee.service"),
	}
}

// CreateEmployeeInput は社員作成時の入力です。
type CreateEmployeeInput struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       *string
	DateOfBirth *time.Time
	Gender      *string
	HireDate    *time.Time
	JobTitle    *string
	Salary      *decimal.Decimal
	IsActive    *bool
}

// UpdateEmployeeInput は社員更新時の入力です。更新可能なカラムのみを持ちます。
type UpdateEmployeeInput struct {
	ID          string
	FirstName   Optional[string]
	LastName    Optional[string]
	Email       Optional[string]
	Phone       Optional[string]
	DateOfBirth Optional[time.Time]
	Gender      Optional[string]
	HireDate    Optional[time.Time]
	JobTitle    Optional[string]
	Salary      Optional[decimal.Decimal]
	IsActive    Optional[bool]
}

// GetEmployeeInput は社員取得時の入力です。
type GetEmployeeInput struct {
	ID string
}

// DeleteEmployeeInput は社員削除時の入力です。
type DeleteEmployeeInput struct {
	ID string
}

// CreateEmployee は顔登録に成功した場合のみ社員を作成します。
//
// 顔登録成功後に INSERT が失敗した場合、登録済みの顔プロファイルは残ります。
// 補償処理は行わず、エラーログに記録して汎用エラーを返します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	log := logger.FromContext(ctx, s.logger)

	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	email := strings.TrimSpace(in.Email)

	var missing []Field
	if firstName == "" {
		missing = append(missing, FieldFirstName)
	}
	if lastName == "" {
		missing = append(missing, FieldLastName)
	}
	if email == "" {
		missing = append(missing, FieldEmail)
	}
	if len(missing) > 0 {
		err := &MissingFieldsError{Fields: missing}
		log.Warn("create employee validation failed", zap.Error(err))
		return nil, err
	}

	name := displayName(firstName, lastName)
	log.Info("starting face enrollment", zap.String("display_name", name))

	status := s.enroller.Enroll(ctx, name)
	if !status.Succeeded() {
		err := &EnrollmentError{DisplayName: name, ExitCode: status.Code}
		log.Error("face enrollment failed", zap.String("display_name", name), zap.Int("exit_code", status.Code))
		return nil, err
	}
	log.Info("face enrollment succeeded, inserting employee", zap.String("display_name", name))

	now := s.clock.Now()
	hireDate := today(now)
	if in.HireDate != nil {
		hireDate = normalizeDate(*in.HireDate)
	}
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	emp := &Employee{
		FirstName:   firstName,
		LastName:    lastName,
		Email:       email,
		Phone:       normalizeOptionalString(in.Phone),
		DateOfBirth: normalizeDatePtr(in.DateOfBirth),
		Gender:      normalizeOptionalString(in.Gender),
		HireDate:    hireDate,
		JobTitle:    normalizeOptionalString(in.JobTitle),
		Salary:      cloneDecimal(in.Salary),
		IsActive:    isActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		result, err := s.repo.Create(txCtx, emp)
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		log.Error("enrolled face profile has no employee record",
			zap.String("display_name", name),
			zap.Error(err),
		)
		return nil, &StoreError{Op: "create", Err: err}
	}

	log.Info("create employee success", zap.Int64("employee_id", created.ID))
	return created, nil
}

// ListEmployees は全社員を employee_id の昇順で返します。
func (s *Service) ListEmployees(ctx context.Context) ([]*Employee, error) {
	var employees []*Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.List(txCtx)
		if err != nil {
			return err
		}
		employees = found
		return nil
	}); err != nil {
		return nil, s.storeFailure(ctx, "list", err)
	}

	if employees == nil {
		employees = []*Employee{}
	}
	return employees, nil
}

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error) {
	id, err := parseID(in.ID)
	if err != nil {
		return nil, err
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, s.storeFailure(ctx, "get", err)
	}

	return result, nil
}

// UpdateEmployee は指定されたカラムのみを 1 文で更新し、updated_at を現在時刻にします。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error) {
	id, err := parseID(in.ID)
	if err != nil {
		return nil, err
	}

	changes, err := in.changes()
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, ErrNoUpdatableFields
	}

	var updated *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		result, err := s.repo.Update(txCtx, id, changes, s.clock.Now())
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, s.storeFailure(ctx, "update", err)
	}

	logger.FromContext(ctx, s.logger).Info("update employee success",
		zap.Int64("employee_id", id),
		zap.Int("fields", len(changes)),
	)
	return updated, nil
}

// DeleteEmployee は社員を物理削除します。顔プロファイルは削除しません。
func (s *Service) DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error {
	id, err := parseID(in.ID)
	if err != nil {
		return err
	}

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	}); err != nil {
		return s.storeFailure(ctx, "delete", err)
	}

	logger.FromContext(ctx, s.logger).Info("delete employee success", zap.Int64("employee_id", id))
	return nil
}

func (s *Service) storeFailure(ctx context.Context, op string, err error) error {
	if errors.Is(err, ErrEmployeeNotFound) {
		return err
	}
	logger.FromContext(ctx, s.logger).Error("employee store operation failed",
		zap.String("op", op),
		zap.Error(err),
	)
	return &StoreError{Op: op, Err: err}
}

// changes は UpdatableFields と同じ順序で更新内容を組み立てます。
func (in UpdateEmployeeInput) changes() ([]Change, error) {
	changes := make([]Change, 0, len(UpdatableFields))

	for _, text := range []struct {
		field Field
		value Optional[string]
	}{
		{FieldFirstName, in.FirstName},
		{FieldLastName, in.LastName},
		{FieldEmail, in.Email},
	} {
		if !text.value.Set {
			continue
		}
		if text.value.Value == nil {
			return nil, &InvalidFieldError{Field: text.field, Reason: "must not be null"}
		}
		trimmed := strings.TrimSpace(*text.value.Value)
		if trimmed == "" {
			return nil, &InvalidFieldError{Field: text.field, Reason: "must not be empty"}
		}
		changes = append(changes, Change{Field: text.field, Value: trimmed})
	}

	if in.Phone.Set {
		changes = append(changes, Change{Field: FieldPhone, Value: optionalStringValue(in.Phone)})
	}
	if in.DateOfBirth.Set {
		changes = append(changes, Change{Field: FieldDateOfBirth, Value: optionalDateValue(in.DateOfBirth)})
	}
	if in.Gender.Set {
		changes = append(changes, Change{Field: FieldGender, Value: optionalStringValue(in.Gender)})
	}
	if in.HireDate.Set {
		if in.HireDate.Value == nil {
			return nil, &InvalidFieldError{Field: FieldHireDate, Reason: "must not be null"}
		}
		changes = append(changes, Change{Field: FieldHireDate, Value: normalizeDate(*in.HireDate.Value)})
	}
	if in.JobTitle.Set {
		changes = append(changes, Change{Field: FieldJobTitle, Value: optionalStringValue(in.JobTitle)})
	}
	if in.Salary.Set {
		var value any
		if in.Salary.Value != nil {
			value = *in.Salary.Value
		}
		changes = append(changes, Change{Field: FieldSalary, Value: value})
	}
	if in.IsActive.Set {
		if in.IsActive.Value == nil {
			return nil, &InvalidFieldError{Field: FieldIsActive, Reason: "must not be null"}
		}
		changes = append(changes, Change{Field: FieldIsActive, Value: *in.IsActive.Value})
	}

	return changes, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, ErrInvalidID
	}
	return id, nil
}

func optionalStringValue(o Optional[string]) any {
	if o.Value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*o.Value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}

func optionalDateValue(o Optional[time.Time]) any {
	if o.Value == nil {
		return nil
	}
	return normalizeDate(*o.Value)
}

func normalizeOptionalString(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// normalizeDate は UTC に変換した上で日付部分のみを残します。
func normalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeDatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	normalized := normalizeDate(*t)
	return &normalized
}

func today(now time.Time) time.Time {
	return normalizeDate(now)
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}
