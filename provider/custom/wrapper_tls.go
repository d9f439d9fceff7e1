package custom

import (
	"errors"
	"net/http"

	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/network"
	lua "github.com/yuin/gopher-lua"
)

// registerTLSClient injects the "http_tls" module. Requests go through the
// engine's client, so scripts get the same browser TLS fingerprint, DNS
// resolver and certificate fallback as builtin extractors.
//
//	http_tls.get(url)              → body string
//	http_tls.get(url, headers_tbl) → body string with custom headers
//	http_tls.request(options_tbl)  → {status, body, headers}
func (e *Extractor) registerTLSClient(L *lua.LState) {
	mod := L.NewTable()
	L.SetField(mod, "get", L.NewFunction(e.httpTLSGet))
	L.SetField(mod, "request", L.NewFunction(e.httpTLSRequest))
	L.SetGlobal("http_tls", mod)
}

// httpTLSGet implements http_tls.get(url [, headers]) → body string
func (e *Extractor) httpTLSGet(L *lua.LState) int {
	url := L.CheckString(1)
	headers := headersFromTable(L.Get(2))

	body, err := e.client.GetString(e.ctx, url, network.WithHeaders(headers))
	if err != nil {
		L.RaiseError("http_tls.get failed: %s", err.Error())
		return 0
	}

	L.Push(lua.LString(body))
	return 1
}

// httpTLSRequest implements http_tls.request(options) → {status, body, headers}.
// An error status is returned to the script rather than raised.
func (e *Extractor) httpTLSRequest(L *lua.LState) int {
	opts := L.CheckTable(1)

	req := &network.Request{
		Method:  getStringField(opts, "method", http.MethodGet),
		URL:     getStringField(opts, "url", ""),
		Headers: headersFromTable(opts.RawGetString("headers")),
	}
	if body := getStringField(opts, "body", ""); body != "" {
		req.Body = []byte(body)
	}

	if req.URL == "" {
		L.RaiseError("http_tls.request: url is required")
		return 0
	}

	result := L.NewTable()

	resp, err := e.client.Do(e.ctx, req)
	if err != nil {
		var netErr *errs.NetworkError
		if !errors.As(err, &netErr) || netErr.Status == 0 {
			L.RaiseError("http_tls.request failed: %s", err.Error())
			return 0
		}
		L.SetField(result, "status", lua.LNumber(netErr.Status))
		L.SetField(result, "body", lua.LString(""))
		L.SetField(result, "headers", L.NewTable())
		L.Push(result)
		return 1
	}

	L.SetField(result, "status", lua.LNumber(resp.Status))
	L.SetField(result, "body", lua.LString(resp.String()))
	L.SetField(result, "headers", headersToTable(L, resp.Header))
	L.Push(result)
	return 1
}

// getStringField is a helper to get a string field from a Lua table with a default.
func getStringField(tbl *lua.LTable, key string, def string) string {
	val := tbl.RawGetString(key)
	if val == lua.LNil {
		return def
	}
	return val.String()
}
