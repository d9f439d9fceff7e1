package custom

import (
	"context"

	"github.com/vidsan-cli/vidsan/constant"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/media"
	lua "github.com/yuin/gopher-lua"
)

// Extract calls the script's Extract function with link.
func (e *Extractor) Extract(ctx context.Context, link string) (*media.Video, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	val, err := e.call(ctx, constant.ExtractFn, lua.LTTable, lua.LString(link))
	if err != nil {
		return nil, errs.Extraction(e.identity.Name, "lua "+constant.ExtractFn, err)
	}

	video, err := videoFromTable(val.(*lua.LTable))
	if err != nil {
		return nil, errs.Extraction(e.identity.Name, "video table", err)
	}
	return video, nil
}
