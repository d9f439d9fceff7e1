package custom

import (
	"context"
	"fmt"

	"github.com/vidsan-cli/vidsan/constant"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/log"
	"github.com/vidsan-cli/vidsan/media"
	lua "github.com/yuin/gopher-lua"
)

// Servers calls the script's optional Servers function. Scripts without
// one report errs.ErrUnsupported. Malformed entries are skipped, so a
// listing may come back empty.
func (e *Extractor) Servers(ctx context.Context, t media.Type) ([]media.Server, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.GetGlobal(constant.ServersFn).Type() != lua.LTFunction {
		return nil, fmt.Errorf("%s: %w", e.identity.Name, errs.ErrUnsupported)
	}

	val, err := e.call(ctx, constant.ServersFn, lua.LTTable, typeArgs(t)...)
	if err != nil {
		return nil, errs.Extraction(e.identity.Name, "lua "+constant.ServersFn, err)
	}

	table := val.(*lua.LTable)
	var servers []media.Server
	for i := 1; i <= table.Len(); i++ {
		entry, ok := table.RawGetInt(i).(*lua.LTable)
		if !ok {
			log.Warnf("custom: %s returned a %s as server %d, skipping it", e.identity.Name, table.RawGetInt(i).Type(), i)
			continue
		}

		server, err := serverFromTable(entry, i)
		if err != nil {
			log.Warnf("custom: %s: skipping malformed server: %v", e.identity.Name, err)
			continue
		}
		servers = append(servers, server)
	}

	return servers, nil
}
