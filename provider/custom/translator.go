package custom

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/vidsan-cli/vidsan/media"
	lua "github.com/yuin/gopher-lua"
)

// Helper to get string from table with default
func getString(table *lua.LTable, key string) string {
	val := table.RawGetString(key)
	if val.Type() == lua.LTString {
		return val.String()
	}
	return ""
}

// stringList reads a comma-separated string or a list of strings.
func stringList(val lua.LValue) []string {
	switch val.Type() {
	case lua.LTString:
		return lo.Compact(lo.Map(strings.Split(val.String(), ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		}))
	case lua.LTTable:
		var list []string
		table := val.(*lua.LTable)
		for i := 1; i <= table.Len(); i++ {
			if v := table.RawGetInt(i); v.Type() == lua.LTString {
				list = append(list, v.String())
			}
		}
		return list
	}
	return nil
}

// headersFromTable reads a name→value table, sorted by name since Lua
// tables have no order.
func headersFromTable(val lua.LValue) media.Headers {
	table, ok := val.(*lua.LTable)
	if !ok {
		return nil
	}

	values := make(map[string]string)
	table.ForEach(func(k, v lua.LValue) {
		if k.Type() == lua.LTString {
			values[k.String()] = v.String()
		}
	})

	names := lo.Keys(values)
	sort.Strings(names)

	var headers media.Headers
	for _, name := range names {
		headers = headers.Set(name, values[name])
	}
	return headers
}

func headersToTable(L *lua.LState, header map[string][]string) *lua.LTable {
	table := L.NewTable()
	for name, values := range header {
		if len(values) > 0 {
			table.RawSetString(name, lua.LString(values[0]))
		}
	}
	return table
}

func videoFromTable(table *lua.LTable) (*media.Video, error) {
	source := getString(table, "source")
	if source == "" {
		return nil, fmt.Errorf("video must have source")
	}

	var opts []media.Option
	if headers := headersFromTable(table.RawGetString("headers")); len(headers) > 0 {
		opts = append(opts, media.WithHeaders(headers))
	}

	switch strings.ToLower(getString(table, "mime")) {
	case "hls", "m3u8", string(media.HLS):
		opts = append(opts, media.WithMime(media.HLS))
	case "mp4", string(media.MP4):
		opts = append(opts, media.WithMime(media.MP4))
	}

	if subs, ok := table.RawGetString("subtitles").(*lua.LTable); ok {
		var subtitles []media.Subtitle
		for i := 1; i <= subs.Len(); i++ {
			sub, ok := subs.RawGetInt(i).(*lua.LTable)
			if !ok || getString(sub, "file") == "" {
				continue
			}
			subtitles = append(subtitles, media.Subtitle{
				Label:   getString(sub, "label"),
				File:    getString(sub, "file"),
				Default: lua.LVAsBool(sub.RawGetString("default")),
			})
		}
		if len(subtitles) > 0 {
			opts = append(opts, media.WithSubtitles(subtitles...))
		}
	}

	return media.NewVideo(source, opts...)
}

func serverFromTable(table *lua.LTable, index int) (media.Server, error) {
	name := getString(table, "name")
	src := getString(table, "src")

	if name == "" || src == "" {
		return media.Server{}, fmt.Errorf("server %d must have name and src", index)
	}

	id := getString(table, "id")
	if id == "" {
		id = strconv.Itoa(index)
	}

	return media.Server{ID: id, Name: name, Src: src}, nil
}

// typeArgs spreads t into the (kind, id, season, episode, episode_id)
// arguments of the Servers function.
func typeArgs(t media.Type) []lua.LValue {
	switch t := t.(type) {
	case media.Movie:
		return []lua.LValue{lua.LString("movie"), lua.LString(t.ID), lua.LNil, lua.LNil, lua.LNil}
	case media.Episode:
		episodeID := lua.LValue(lua.LNil)
		if t.EpisodeID != "" {
			episodeID = lua.LString(t.EpisodeID)
		}
		return []lua.LValue{
			lua.LString("tv"),
			lua.LString(t.TvShowID),
			lua.LNumber(t.Season),
			lua.LNumber(t.Number),
			episodeID,
		}
	}
	return nil
}
