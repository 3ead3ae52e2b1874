package employee

import (
	"context"
	"time"
)

// Repository は社員永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, employee *Employee) (*Employee, error)
	Update(ctx context.Context, id int64, changes []Change, updatedAt time.Time) (*Employee, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*Employee, error)
	List(ctx context.Context) ([]*Employee, error)
}

// EnrollmentStatus は外部顔登録プロセスの正規化済み結果です。
type EnrollmentStatus struct {
	Code   int
	Output string
}

// Succeeded は終了コード 0 のときに true を返します。
func (s EnrollmentStatus) Succeeded() bool {
	return s.Code == 0
}

// Enroller は外部の顔登録サブシステムを呼び出します。失敗も EnrollmentStatus で返し、エラーは返しません。
type Enroller interface {
	Enroll(ctx context.Context, displayName string) EnrollmentStatus
}
