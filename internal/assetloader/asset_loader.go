package assetloader

import (
	"context"
	"time"

	"github.com/rhysm/assetgraph/internal/domain"
	"github.com/rhysm/assetgraph/internal/repository"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
)

// AssetLoader batches asset lookups by external asset id so hydrating a list
// of relationship rows costs one store read instead of one per edge.
type AssetLoader struct {
	Loader *dataloader.Loader
}

// NewAssetLoader builds a loader scoped to one organization. Keys are
// external asset ids; missing assets resolve to nil data, not errors.
func NewAssetLoader(repo repository.AssetRepository, organizationID uuid.UUID) *AssetLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]string, len(keys))
		for i, k := range keys {
			ids[i] = k.String()
		}

		assets, err := repo.GetByAssetIDs(ctx, organizationID, ids)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		assetMap := make(map[string]domain.Asset, len(assets))
		for _, a := range assets {
			assetMap[a.AssetID] = a
		}

		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if a, ok := assetMap[id]; ok {
				results[i] = &dataloader.Result{Data: a}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}

		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &AssetLoader{Loader: loader}
}

// LoadMany resolves a batch of asset ids, dropping ids with no backing asset.
func (l *AssetLoader) LoadMany(ctx context.Context, assetIDs []string) ([]domain.Asset, error) {
	if len(assetIDs) == 0 {
		return []domain.Asset{}, nil
	}

	keys := make(dataloader.Keys, len(assetIDs))
	for i, id := range assetIDs {
		keys[i] = dataloader.StringKey(id)
	}

	thunk := l.Loader.LoadMany(ctx, keys)
	data, errs := thunk()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	assets := make([]domain.Asset, 0, len(data))
	for _, item := range data {
		if asset, ok := item.(domain.Asset); ok {
			assets = append(assets, asset)
		}
	}

	return assets, nil
}
