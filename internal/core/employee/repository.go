package employee

import "context"

// Repository は社員永続化の抽象です。
// 検索系は該当なしの場合 ErrEmployeeNotFound を返します。
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Employee, error)
	FindByEmail(ctx context.Context, email string) (*Employee, error)
	// FindByNames と FindByAge は複数該当時に最小の ID を返します。
	FindByNames(ctx context.Context, firstName, lastName string) (*Employee, error)
	FindByAge(ctx context.Context, age int) (*Employee, error)
	FindAll(ctx context.Context) ([]*Employee, error)
	// Save は ID が 0 なら新規作成、それ以外は更新を行います。
	Save(ctx context.Context, employee *Employee) (*Employee, error)
	DeleteByID(ctx context.Context, id int64) error
}
