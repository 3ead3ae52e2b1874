package employee

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/ogurasousui/employee-provisioning/internal/platform/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type stubEnroller struct {
	code  int
	calls []string
}

func (s *stubEnroller) Enroll(_ context.Context, displayName string) EnrollmentStatus {
	s.calls = append(s.calls, displayName)
	return EnrollmentStatus{Code: s.code}
}

type fakeEmployeeRepo struct {
	employees map[int64]*Employee
	sequence  int64
	calls     int

	createErr error
	listErr   error
}

func newFakeEmployeeRepo() *fakeEmployeeRepo {
	return &fakeEmployeeRepo{employees: make(map[int64]*Employee)}
}

func (r *fakeEmployeeRepo) Create(_ context.Context, e *Employee) (*Employee, error) {
	r.calls++
	if r.createErr != nil {
		return nil, r.createErr
	}
	clone := cloneEmployee(e)
	r.sequence++
	clone.ID = r.sequence
	r.employees[clone.ID] = clone
	return cloneEmployee(clone), nil
}

func (r *fakeEmployeeRepo) Update(_ context.Context, id int64, changes []Change, updatedAt time.Time) (*Employee, error) {
	r.calls++
	existing, ok := r.employees[id]
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	updated := cloneEmployee(existing)
	for _, c := range changes {
		applyChange(updated, c)
	}
	updated.UpdatedAt = updatedAt
	r.employees[id] = updated
	return cloneEmployee(updated), nil
}

func (r *fakeEmployeeRepo) Delete(_ context.Context, id int64) error {
	r.calls++
	if _, ok := r.employees[id]; !ok {
		return ErrEmployeeNotFound
	}
	delete(r.employees, id)
	return nil
}

func (r *fakeEmployeeRepo) FindByID(_ context.Context, id int64) (*Employee, error) {
	r.calls++
	emp, ok := r.employees[id]
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	return cloneEmployee(emp), nil
}

func (r *fakeEmployeeRepo) List(_ context.Context) ([]*Employee, error) {
	r.calls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	if len(r.employees) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(r.employees))
	for id := range r.employees {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*Employee, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneEmployee(r.employees[id]))
	}
	return out, nil
}

func applyChange(e *Employee, c Change) {
	switch c.Field {
	case FieldFirstName:
		e.FirstName = c.Value.(string)
	case FieldLastName:
		e.LastName = c.Value.(string)
	case FieldEmail:
		e.Email = c.Value.(string)
	case FieldPhone:
		e.Phone = stringOrNil(c.Value)
	case FieldGender:
		e.Gender = stringOrNil(c.Value)
	case FieldJobTitle:
		e.JobTitle = stringOrNil(c.Value)
	case FieldDateOfBirth:
		if c.Value == nil {
			e.DateOfBirth = nil
		} else {
			d := c.Value.(time.Time)
			e.DateOfBirth = &d
		}
	case FieldHireDate:
		e.HireDate = c.Value.(time.Time)
	case FieldSalary:
		if c.Value == nil {
			e.Salary = nil
		} else {
			d := c.Value.(decimal.Decimal)
			e.Salary = &d
		}
	case FieldIsActive:
		e.IsActive = c.Value.(bool)
	}
}

func stringOrNil(v any) *string {
	if v == nil {
		return nil
	}
	s := v.(string)
	return &s
}

func cloneEmployee(e *Employee) *Employee {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

type recordingTxManager struct {
	readOnly  int
	readWrite int
}

func (m *recordingTxManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	m.readOnly++
	return fn(ctx)
}

func (m *recordingTxManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	m.readWrite++
	return fn(ctx)
}

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestService(repo Repository, enroller Enroller) *Service {
	return NewService(repo, enroller, &stubClock{now: fixedNow}, nil, zap.NewNop())
}

func validCreateInput() CreateEmployeeInput {
	return CreateEmployeeInput{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
}

func TestService_CreateEmployee_Success(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	enroller := &stubEnroller{}
	tx := &recordingTxManager{}
	svc := NewService(repo, enroller, &stubClock{now: fixedNow}, tx, zap.NewNop())

	created, err := svc.CreateEmployee(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	if created.ID != 1 {
		t.Errorf("expected generated id 1, got %d", created.ID)
	}
	if len(enroller.calls) != 1 || enroller.calls[0] != "Ada Lovelace" {
		t.Fatalf("expected one enrollment for \"Ada Lovelace\", got %v", enroller.calls)
	}
	if !created.IsActive {
		t.Errorf("expected is_active default true")
	}
	wantHire := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !created.HireDate.Equal(wantHire) {
		t.Errorf("expected hire_date %v, got %v", wantHire, created.HireDate)
	}
	if !created.CreatedAt.Equal(fixedNow) || !created.UpdatedAt.Equal(fixedNow) {
		t.Errorf("expected timestamps from clock, got %v / %v", created.CreatedAt, created.UpdatedAt)
	}
	if created.Phone != nil || created.Salary != nil {
		t.Errorf("expected optional fields to be nil: %+v", created)
	}
	if tx.readWrite != 1 {
		t.Errorf("expected insert inside read-write transaction, got %d", tx.readWrite)
	}
}

func TestService_CreateEmployee_KeepsExplicitValues(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	svc := newTestService(repo, &stubEnroller{})

	hire := time.Date(2024, 4, 1, 15, 0, 0, 0, time.UTC)
	inactive := false
	salary := decimal.RequireFromString("50000.00")
	phone := "  555-0100 "
	blank := "   "

	in := validCreateInput()
	in.HireDate = &hire
	in.IsActive = &inactive
	in.Salary = &salary
	in.Phone = &phone
	in.JobTitle = &blank

	created, err := svc.CreateEmployee(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	if created.IsActive {
		t.Errorf("expected explicit is_active false")
	}
	if !created.HireDate.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected hire date: %v", created.HireDate)
	}
	if created.Salary == nil || !created.Salary.Equal(salary) {
		t.Errorf("unexpected salary: %+v", created.Salary)
	}
	if created.Phone == nil || *created.Phone != "555-0100" {
		t.Errorf("expected trimmed phone, got %+v", created.Phone)
	}
	if created.JobTitle != nil {
		t.Errorf("expected blank job title to be stored as null, got %q", *created.JobTitle)
	}
}

func TestService_CreateEmployee_MissingFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   CreateEmployeeInput
		want []Field
	}{
		{name: "all missing", in: CreateEmployeeInput{}, want: []Field{FieldFirstName, FieldLastName, FieldEmail}},
		{name: "email only", in: CreateEmployeeInput{FirstName: "Ada", LastName: "Lovelace"}, want: []Field{FieldEmail}},
		{name: "whitespace", in: CreateEmployeeInput{FirstName: " ", LastName: "Lovelace", Email: "\t"}, want: []Field{FieldFirstName, FieldEmail}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := newFakeEmployeeRepo()
			enroller := &stubEnroller{}
			svc := newTestService(repo, enroller)

			_, err := svc.CreateEmployee(context.Background(), tc.in)
			if !errors.Is(err, ErrMissingRequiredFields) {
				t.Fatalf("expected ErrMissingRequiredFields, got %v", err)
			}

			var missing *MissingFieldsError
			if !errors.As(err, &missing) {
				t.Fatalf("expected *MissingFieldsError, got %T", err)
			}
			if len(missing.Fields) != len(tc.want) {
				t.Fatalf("expected fields %v, got %v", tc.want, missing.Fields)
			}
			for i := range tc.want {
				if missing.Fields[i] != tc.want[i] {
					t.Fatalf("expected fields %v, got %v", tc.want, missing.Fields)
				}
			}

			if len(enroller.calls) != 0 {
				t.Errorf("enrollment must not run on validation failure")
			}
			if repo.calls != 0 {
				t.Errorf("store must not be touched on validation failure")
			}
		})
	}
}

func TestService_CreateEmployee_EnrollmentFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	enroller := &stubEnroller{code: 3}
	svc := newTestService(repo, enroller)

	_, err := svc.CreateEmployee(context.Background(), validCreateInput())
	if !errors.Is(err, ErrFaceEnrollmentFailed) {
		t.Fatalf("expected ErrFaceEnrollmentFailed, got %v", err)
	}

	var enrollErr *EnrollmentError
	if !errors.As(err, &enrollErr) {
		t.Fatalf("expected *EnrollmentError, got %T", err)
	}
	if enrollErr.ExitCode != 3 || enrollErr.DisplayName != "Ada Lovelace" {
		t.Errorf("unexpected enrollment error: %+v", enrollErr)
	}

	if len(enroller.calls) != 1 {
		t.Errorf("expected exactly one enrollment attempt, got %d", len(enroller.calls))
	}

	list, err := svc.ListEmployees(context.Background())
	if err != nil {
		t.Fatalf("ListEmployees returned error: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no employee after failed enrollment, got %d", len(list))
	}
}

func TestService_CreateEmployee_InsertFailureAfterEnrollment(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	repo := newFakeEmployeeRepo()
	repo.createErr = errors.New("duplicate key value violates unique constraint")
	enroller := &stubEnroller{}
	svc := NewService(repo, enroller, &stubClock{now: fixedNow}, nil, zap.New(core))

	_, err := svc.CreateEmployee(context.Background(), validCreateInput())
	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if len(enroller.calls) != 1 {
		t.Fatalf("expected enrollment before insert, got %d calls", len(enroller.calls))
	}

	entries := logs.FilterMessage("enrolled face profile has no employee record").All()
	if len(entries) != 1 {
		t.Fatalf("expected orphaned enrollment to be logged once, got %d", len(entries))
	}
}

func TestService_ListEmployees(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	svc := newTestService(repo, &stubEnroller{})

	empty, err := svc.ListEmployees(context.Background())
	if err != nil {
		t.Fatalf("ListEmployees returned error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", empty)
	}

	for _, name := range []string{"Ada", "Grace", "Alan"} {
		in := validCreateInput()
		in.FirstName = name
		if _, err := svc.CreateEmployee(context.Background(), in); err != nil {
			t.Fatalf("CreateEmployee returned error: %v", err)
		}
	}

	list, err := svc.ListEmployees(context.Background())
	if err != nil {
		t.Fatalf("ListEmployees returned error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 employees, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].ID >= list[i].ID {
			t.Fatalf("expected ascending ids, got %d then %d", list[i-1].ID, list[i].ID)
		}
	}
}

func TestService_ListEmployees_StoreError(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	repo.listErr = errors.New("connection reset")
	svc := newTestService(repo, &stubEnroller{})

	if _, err := svc.ListEmployees(context.Background()); !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
}

func TestService_GetEmployee(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	svc := newTestService(repo, &stubEnroller{})

	created, err := svc.CreateEmployee(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	got, err := svc.GetEmployee(context.Background(), GetEmployeeInput{ID: "1"})
	if err != nil {
		t.Fatalf("GetEmployee returned error: %v", err)
	}
	if got.ID != created.ID || got.Email != "ada@example.com" {
		t.Fatalf("unexpected employee: %+v", got)
	}

	if _, err := svc.GetEmployee(context.Background(), GetEmployeeInput{ID: "99"}); !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestService_InvalidIDRejectedBeforeStore(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"abc", "", "1.5", "12x"} {
		repo := newFakeEmployeeRepo()
		svc := newTestService(repo, &stubEnroller{})
		ctx := context.Background()

		if _, err := svc.GetEmployee(ctx, GetEmployeeInput{ID: raw}); !errors.Is(err, ErrInvalidID) {
			t.Errorf("get %q: expected ErrInvalidID, got %v", raw, err)
		}
		if _, err := svc.UpdateEmployee(ctx, UpdateEmployeeInput{ID: raw, FirstName: Some("X")}); !errors.Is(err, ErrInvalidID) {
			t.Errorf("update %q: expected ErrInvalidID, got %v", raw, err)
		}
		if err := svc.DeleteEmployee(ctx, DeleteEmployeeInput{ID: raw}); !errors.Is(err, ErrInvalidID) {
			t.Errorf("delete %q: expected ErrInvalidID, got %v", raw, err)
		}
		if repo.calls != 0 {
			t.Errorf("id %q: store must not be touched, got %d calls", raw, repo.calls)
		}
	}
}

func TestService_UpdateEmployee_OnlyGivenFields(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	clock := &stubClock{now: fixedNow}
	svc := NewService(repo, &stubEnroller{}, clock, nil, zap.NewNop())

	in := validCreateInput()
	title := "Analyst"
	in.JobTitle = &title
	if _, err := svc.CreateEmployee(context.Background(), in); err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	clock.now = fixedNow.Add(time.Hour)
	updated, err := svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{
		ID:        "1",
		FirstName: Some(" Augusta "),
		JobTitle:  Null[string](),
	})
	if err != nil {
		t.Fatalf("UpdateEmployee returned error: %v", err)
	}

	if updated.FirstName != "Augusta" {
		t.Errorf("expected first name Augusta, got %q", updated.FirstName)
	}
	if updated.LastName != "Lovelace" || updated.Email != "ada@example.com" {
		t.Errorf("untouched fields changed: %+v", updated)
	}
	if updated.JobTitle != nil {
		t.Errorf("expected job title cleared, got %q", *updated.JobTitle)
	}
	if !updated.UpdatedAt.Equal(clock.now) {
		t.Errorf("expected updated_at %v, got %v", clock.now, updated.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(fixedNow) {
		t.Errorf("created_at must not change, got %v", updated.CreatedAt)
	}
}

func TestUpdateEmployeeInput_ChangesFollowFixedOrder(t *testing.T) {
	t.Parallel()

	salary := decimal.RequireFromString("1200.50")
	in := UpdateEmployeeInput{
		ID:       "1",
		IsActive: Some(false),
		Salary:   Some(salary),
		Email:    Some("x@example.com"),
		Phone:    Some("  "),
	}

	changes, err := in.changes()
	if err != nil {
		t.Fatalf("changes returned error: %v", err)
	}

	want := []Field{FieldEmail, FieldPhone, FieldSalary, FieldIsActive}
	if len(changes) != len(want) {
		t.Fatalf("expected %d changes, got %d", len(want), len(changes))
	}
	for i, f := range want {
		if changes[i].Field != f {
			t.Fatalf("change %d: expected %s, got %s", i, f, changes[i].Field)
		}
	}
	if changes[1].Value != nil {
		t.Errorf("expected blank phone to become NULL, got %v", changes[1].Value)
	}
}

func TestService_UpdateEmployee_NoFields(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	svc := newTestService(repo, &stubEnroller{})

	_, err := svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{ID: "1"})
	if !errors.Is(err, ErrNoUpdatableFields) {
		t.Fatalf("expected ErrNoUpdatableFields, got %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("store must not be touched, got %d calls", repo.calls)
	}
}

func TestService_UpdateEmployee_RequiredColumnCannotBeNull(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		in    UpdateEmployeeInput
		field Field
	}{
		{name: "null first name", in: UpdateEmployeeInput{ID: "1", FirstName: Null[string]()}, field: FieldFirstName},
		{name: "blank email", in: UpdateEmployeeInput{ID: "1", Email: Some(" ")}, field: FieldEmail},
		{name: "null hire date", in: UpdateEmployeeInput{ID: "1", HireDate: Null[time.Time]()}, field: FieldHireDate},
		{name: "null is_active", in: UpdateEmployeeInput{ID: "1", IsActive: Null[bool]()}, field: FieldIsActive},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := newFakeEmployeeRepo()
			svc := newTestService(repo, &stubEnroller{})

			_, err := svc.UpdateEmployee(context.Background(), tc.in)
			var invalid *InvalidFieldError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected *InvalidFieldError, got %v", err)
			}
			if invalid.Field != tc.field {
				t.Errorf("expected field %s, got %s", tc.field, invalid.Field)
			}
			if !errors.Is(err, ErrInvalidField) {
				t.Errorf("expected errors.Is ErrInvalidField")
			}
			if repo.calls != 0 {
				t.Errorf("store must not be touched")
			}
		})
	}
}

func TestService_UpdateEmployee_NotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeEmployeeRepo(), &stubEnroller{})

	_, err := svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{ID: "5", LastName: Some("X")})
	if !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestService_DeleteEmployee(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	enroller := &stubEnroller{}
	svc := newTestService(repo, enroller)

	if _, err := svc.CreateEmployee(context.Background(), validCreateInput()); err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	if err := svc.DeleteEmployee(context.Background(), DeleteEmployeeInput{ID: "1"}); err != nil {
		t.Fatalf("DeleteEmployee returned error: %v", err)
	}
	if err := svc.DeleteEmployee(context.Background(), DeleteEmployeeInput{ID: "1"}); !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound on second delete, got %v", err)
	}
	if _, err := svc.GetEmployee(context.Background(), GetEmployeeInput{ID: "1"}); !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected deleted employee to be gone, got %v", err)
	}
	if len(enroller.calls) != 1 {
		t.Fatalf("delete must not trigger enrollment, got %d calls", len(enroller.calls))
	}
}

func TestService_GetEmployee_RepeatedReadsAreIdentical(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	clock := &stubClock{now: fixedNow}
	svc := NewService(repo, &stubEnroller{}, clock, nil, zap.NewNop())

	if _, err := svc.CreateEmployee(context.Background(), validCreateInput()); err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	first, err := svc.GetEmployee(context.Background(), GetEmployeeInput{ID: "1"})
	if err != nil {
		t.Fatalf("first GetEmployee returned error: %v", err)
	}
	clock.now = fixedNow.Add(time.Hour)
	second, err := svc.GetEmployee(context.Background(), GetEmployeeInput{ID: "1"})
	if err != nil {
		t.Fatalf("second GetEmployee returned error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical reads, got %+v and %+v", first, second)
	}
	if !second.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("read must not touch updated_at, got %v", second.UpdatedAt)
	}
}

func TestService_CreateEmployee_DatesTruncatedInUTC(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeEmployeeRepo(), &stubEnroller{})

	eastern := time.FixedZone("EST", -5*60*60)
	hire := time.Date(2024, 1, 1, 23, 0, 0, 0, eastern)
	dob := time.Date(1990, 6, 30, 22, 30, 0, 0, eastern)

	in := validCreateInput()
	in.HireDate = &hire
	in.DateOfBirth = &dob

	created, err := svc.CreateEmployee(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	if want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC); !created.HireDate.Equal(want) {
		t.Errorf("expected hire date %v, got %v", want, created.HireDate)
	}
	if want := time.Date(1990, 7, 1, 0, 0, 0, 0, time.UTC); created.DateOfBirth == nil || !created.DateOfBirth.Equal(want) {
		t.Errorf("expected date of birth %v, got %+v", want, created.DateOfBirth)
	}
}

func TestService_LogsWithComponentNameAndRequestFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	svc := NewService(newFakeEmployeeRepo(), &stubEnroller{}, &stubClock{now: fixedNow}, nil, zap.New(core))

	ctx := logger.WithFields(context.Background(), zap.String("request_id", "req-42"))
	if _, err := svc.CreateEmployee(ctx, validCreateInput()); err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	entries := logs.FilterMessage("create employee success").All()
	if len(entries) != 1 {
		t.Fatalf("expected one success entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "employee.service" {
		t.Errorf("expected logger name employee.service, got %q", entries[0].LoggerName)
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-42" {
		t.Errorf("expected request_id req-42, got %v", got)
	}
}
