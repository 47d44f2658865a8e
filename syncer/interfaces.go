package syncer

import (
	"context"

	"github.com/google/uuid"
	"github.com/mohamedamezian/NN-Instagram/domain"
	"github.com/mohamedamezian/NN-Instagram/graph"
	"github.com/mohamedamezian/NN-Instagram/store"
)

// Fetcher retrieves the remote feed. Implemented by *graph.Client.
type Fetcher interface {
	Fetch(ctx context.Context, cred domain.Credential) (*domain.Feed, error)
}

// Downloader buffers one remote asset. Implemented by *graph.Client.
type Downloader interface {
	Download(ctx context.Context, url string) (*graph.Download, error)
}

// Store is the part of the commerce store API the pipeline writes to.
// Implemented by *store.Client.
type Store interface {
	CreateFiles(ctx context.Context, files []store.FileInput) ([]store.File, error)
	CreateStagedUploads(ctx context.Context, inputs []store.StagedUploadInput) ([]store.StagedTarget, error)
	UploadStaged(ctx context.Context, target store.StagedTarget, filename, mimeType string, data []byte) error
	UpsertMetaobject(ctx context.Context, typ, handle string, fields []store.Field) (*store.Metaobject, error)
	MetaobjectByHandle(ctx context.Context, typ, handle string) (*store.Metaobject, error)
	DeleteMetaobject(ctx context.Context, id string) error
	DeleteFiles(ctx context.Context, ids []string) error
	ListMetaobjects(ctx context.Context, typ string) ([]store.Metaobject, error)
	ListFiles(ctx context.Context, query string) ([]store.File, error)
}

// Accounts is the local account state and run journal. Implemented by *db.DB.
type Accounts interface {
	ReadAccount(tenant, provider string) (*domain.Account, error)
	UpdateAccountUsername(id uuid.UUID, username string) error
	CreateSyncRun(run *domain.SyncRun) error
}
