package handler

import (
	"context"

	"github.com/hitoshi/regman/internal/index"
	"github.com/hitoshi/regman/internal/model"
)

// IndexServiceAdapter はindex.Builderとindex.Storeを
// IndexServiceInterfaceに適合させるアダプタ。
type IndexServiceAdapter struct {
	builder *index.Builder
	store   *index.Store
}

// NewIndexServiceAdapter はIndexServiceAdapterを生成する。
func NewIndexServiceAdapter(builder *index.Builder, store *index.Store) *IndexServiceAdapter {
	return &IndexServiceAdapter{
		builder: builder,
		store:   store,
	}
}

// EnsureIndex は必要に応じてバックグラウンドビルドを起動する。
func (a *IndexServiceAdapter) EnsureIndex(ctx context.Context, username, password string, force bool) bool {
	return a.builder.EnsureIndex(ctx, username, password, force)
}

// Status はアカウントのインデックス状態を返す。
func (a *IndexServiceAdapter) Status(username string) model.IndexStatus {
	return a.store.Status(username)
}
