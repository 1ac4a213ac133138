package users

import (
	"context"
)

// Repository is the durable side of the directory: full snapshots in, full
// snapshots out. *filedb.DB[UserRecord] implements it.
type Repository interface {
	Load(ctx context.Context) ([]UserRecord, error)
	Save(ctx context.Context, records []UserRecord) error
	Drop() error
}
