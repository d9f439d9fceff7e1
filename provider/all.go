package provider

import (
	"context"
	"errors"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/extractor"
	"github.com/vidsan-cli/vidsan/media"
)

// DefaultWorkers bounds ServersAll when no worker count is configured.
const DefaultWorkers = 4

// Group is the outcome of one extractor's listing.
type Group struct {
	Extractor string         `json:"extractor"`
	Servers   []media.Server `json:"servers"`
	Err       error          `json:"-"`
}

// ServersAll asks every extractor that can list servers for t, at most
// r.workers at a time. Groups keep registry order. Extractors that turn
// out not to support listing are left out.
func (r *Registry) ServersAll(ctx context.Context, t media.Type) ([]Group, error) {
	listers := lo.Filter(r.extractors, func(e extractor.Extractor, _ int) bool {
		_, ok := e.(extractor.ServerLister)
		return ok
	})

	pool, err := ants.NewPool(r.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		wg     sync.WaitGroup
		groups = make([]Group, len(listers))
	)
	for i, e := range listers {
		groups[i].Extractor = e.Identity().Name

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			groups[i].Servers, groups[i].Err = e.(extractor.ServerLister).Servers(ctx, t)
		})
		if err != nil {
			wg.Done()
			groups[i].Err = err
		}
	}
	wg.Wait()

	return lo.Filter(groups, func(g Group, _ int) bool {
		return !errors.Is(g.Err, errs.ErrUnsupported)
	}), ctx.Err()
}
