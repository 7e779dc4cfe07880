package download

import (
	"context"

	"github.com/ytget/yt-web/internal/engine"
	"github.com/ytget/yt-web/internal/model"
)

// Fetcher runs one download and blocks until the tool exits.
// *engine.Engine satisfies it.
type Fetcher interface {
	Download(ctx context.Context, opts engine.DownloadOptions) error
}

// Orchestrator defines the interface for the fetch service.
type Orchestrator interface {
	Fetch(ctx context.Context, req model.FetchRequest) (model.ArtifactToken, error)
	Submit(req model.FetchRequest) (*model.FetchTask, error)
	Wait(ctx context.Context, id string) (*model.FetchTask, error)
	GetTask(id string) (*model.FetchTask, bool)
	GetAllTasks() []*model.FetchTask
	StopTask(id string) error
	RemoveTask(id string) error
	Stats() Stats
}

var _ Orchestrator = (*Service)(nil)
