// Package custom loads extractors written in Lua.
//
// A script declares the globals Name, MainURL and AliasURLs and defines
// Extract(link), returning { source, headers, mime, subtitles }. It may also
// define Servers(kind, id, season, episode), returning a list of
// { id, name, src }. Scripts get the mangal-lua-libs modules plus http_tls
// and vidsan (see wrapper_tls.go and helpers.go).
package custom

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	libs "github.com/metafates/mangal-lua-libs"
	"github.com/vidsan-cli/vidsan/constant"
	"github.com/vidsan-cli/vidsan/extractor"
	"github.com/vidsan-cli/vidsan/filesystem"
	"github.com/vidsan-cli/vidsan/internal/scraper"
	"github.com/vidsan-cli/vidsan/network"
	"github.com/vidsan-cli/vidsan/util"
	lua "github.com/yuin/gopher-lua"
)

// Load runs the script at path and validates its globals.
func Load(path string, client *network.Client) (*Extractor, error) {
	state := lua.NewState()
	libs.Preload(state)

	e := &Extractor{
		path:   path,
		client: client,
		state:  state,
		ctx:    context.Background(),
	}
	e.registerTLSClient(state)
	registerHelpers(state)

	if err := scraper.PreCompileAndLoad(state, path); err != nil {
		state.Close()
		return nil, err
	}

	name := util.FileStem(path)
	if v := state.GetGlobal(constant.ExtractorNameVar); v.Type() == lua.LTString && v.String() != "" {
		name = v.String()
	}

	mainURL := state.GetGlobal(constant.ExtractorMainURLVar)
	if mainURL.Type() != lua.LTString || mainURL.String() == "" {
		state.Close()
		return nil, fmt.Errorf("%s: global %s is required", name, constant.ExtractorMainURLVar)
	}

	if state.GetGlobal(constant.ExtractFn).Type() != lua.LTFunction {
		state.Close()
		return nil, fmt.Errorf("function %s is required but not defined in %s", constant.ExtractFn, name)
	}

	e.identity = extractor.Identity{
		Name:      name,
		MainURL:   mainURL.String(),
		AliasURLs: stringList(state.GetGlobal(constant.ExtractorAliasesVar)),
	}
	return e, nil
}

// LoadAll loads every .lua file in dir, in name order. Scripts that fail
// to load are skipped and reported in the joined error. A missing dir
// holds no scripts.
func LoadAll(dir string, client *network.Client) ([]*Extractor, error) {
	files, err := filesystem.API().ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var (
		loaded []*Extractor
		failed []error
	)
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".lua" {
			continue
		}

		e, err := Load(filepath.Join(dir, f.Name()), client)
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", f.Name(), err))
			continue
		}
		loaded = append(loaded, e)
	}

	return loaded, errors.Join(failed...)
}
