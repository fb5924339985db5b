package loaders

import (
	"context"
	"fmt"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/repositories"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// Loaders contains the batched loaders used while rendering dashboards
type Loaders struct {
	AccountLoader *dataloader.Loader[int64, *entities.Account]
}

// NewLoaders creates a new instance of Loaders
func NewLoaders(accountRepo repositories.AccountRepository) *Loaders {
	return &Loaders{
		AccountLoader: dataloader.NewBatchedLoader(func(ctx context.Context, keys []int64) []*dataloader.Result[*entities.Account] {
			results := make([]*dataloader.Result[*entities.Account], len(keys))
			accounts, err := accountRepo.GetByIDs(ctx, keys)

			for i, key := range keys {
				if err != nil {
					results[i] = &dataloader.Result[*entities.Account]{Error: err}
				} else if a, ok := accounts[key]; ok {
					results[i] = &dataloader.Result[*entities.Account]{Data: a}
				} else {
					results[i] = &dataloader.Result[*entities.Account]{Error: fmt.Errorf("account %d not found", key)}
				}
			}
			return results
		}, dataloader.WithCache[int64, *entities.Account](&dataloader.NoCache[int64, *entities.Account]{})),
	}
}

// LoadAccounts resolves ids in one batch. Missing accounts are skipped.
func (l *Loaders) LoadAccounts(ctx context.Context, ids []int64) map[int64]*entities.Account {
	if len(ids) == 0 {
		return map[int64]*entities.Account{}
	}
	thunk := l.AccountLoader.LoadMany(ctx, ids)
	data, _ := thunk()

	out := make(map[int64]*entities.Account, len(ids))
	for i, a := range data {
		if a != nil {
			out[ids[i]] = a
		}
	}
	return out
}

// For returns the loaders for a given context, or nil if none are attached
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}
