package constant

// Lua extractor globals and functions looked up by the custom loader.
const (
	ExtractorNameVar    = "Name"
	ExtractorMainURLVar = "MainURL"
	ExtractorAliasesVar = "AliasURLs"
	ExtractFn           = "Extract"
	ServersFn           = "Servers"
)

// ExtractorTemplate is a Go text/template for scaffolding new Lua extractor files.
const ExtractorTemplate = `{{ $divider := repeat "-" (plus (max (len .URL) (len .Name) (len .Author) 3) 12) }}{{ $divider }}
-- @name    {{ .Name }}
-- @url     {{ .URL }}
-- @author  {{ .Author }}
-- @license MIT
{{ $divider }}


---@alias video { source: string, headers: table<string, string>|nil, mime: "hls"|"mp4"|nil, subtitles: { label: string, file: string }[]|nil }
---@alias server { id: string, name: string, src: string }


----- IMPORTS -----
local strings = require("strings")
--- END IMPORTS ---



----- VARIABLES -----
{{ .NameVar }} = "{{ .Name }}"
{{ .MainURLVar }} = "{{ .URL }}"
{{ .AliasesVar }} = {}
--- END VARIABLES ---



----- MAIN -----

--- Resolves an embed link into a playable video.
-- Helpers: http_tls.get(url, headers), vidsan.unpack(text), vidsan.decrypt_gcm(payload, iv, key_parts)
-- @param link string Embed link
-- @return video
function {{ .ExtractFn }}(link)
	local body = http_tls.get(link, { Referer = {{ .MainURLVar }} })
	local source = body:match('file%s*:%s*"([^"]+)"')
	return { source = source, headers = { Referer = {{ .MainURLVar }} } }
end

--- END MAIN ---




----- HELPERS -----
--- END HELPERS ---

-- ex: ts=4 sw=4 et filetype=lua
`
