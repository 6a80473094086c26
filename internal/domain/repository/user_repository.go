package repository

import (
	"context"

	"github.com/meta556-debug/bid2buy-try/internal/domain/entity"
)

// UserRepository defines user persistence. Create also provisions the
// user's wallet (balance 0) in the same transaction; registration never
// leaves a user without a wallet.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
}
