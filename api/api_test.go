package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/extractor"
	"github.com/vidsan-cli/vidsan/media"
	"github.com/vidsan-cli/vidsan/provider"
)

type stubEngine struct{}

func (stubEngine) Extractors() []extractor.Extractor {
	return []extractor.Extractor{extractor.NewMoviesapi(extractor.Env{}), extractor.NewVOE(extractor.Env{})}
}

func (stubEngine) Extract(_ context.Context, link string) (*media.Video, error) {
	if link == "https://voe.sx/e/ok" {
		return media.NewVideo("https://cdn.example/master.m3u8", media.WithHeaders(media.NewHeaders("Referer", "https://voe.sx/")))
	}
	if link == "https://voe.sx/e/broken" {
		return nil, errs.Extraction("VOE", "decode", errors.New("no payload"))
	}
	return nil, fmt.Errorf("%w for host x", errs.ErrNoExtractorFound)
}

func (stubEngine) Servers(_ context.Context, name string, t media.Type) ([]media.Server, error) {
	if name != "Moviesapi" {
		return nil, errs.ErrUnsupported
	}
	return []media.Server{{ID: "1", Name: "Moviesapi", Src: "https://moviesapi.club/" + t.String()}}, nil
}

func (stubEngine) ServersAll(context.Context, media.Type) ([]provider.Group, error) {
	return []provider.Group{
		{Extractor: "Moviesapi", Servers: []media.Server{{ID: "1"}}},
		{Extractor: "PrimeSrc", Err: errors.New("down")},
	}, nil
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandler(t *testing.T) {
	Convey("Given the api handler", t, func() {
		h := New(stubEngine{}, Options{})

		Convey("Resolve returns the video", func() {
			rec := get(h, "/api/resolve?link=https://voe.sx/e/ok")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var video media.Video
			So(json.Unmarshal(rec.Body.Bytes(), &video), ShouldBeNil)
			So(video.Source, ShouldEqual, "https://cdn.example/master.m3u8")
			So(video.Headers.Get("Referer"), ShouldEqual, "https://voe.sx/")
		})

		Convey("Resolve maps errors to statuses", func() {
			So(get(h, "/api/resolve").Code, ShouldEqual, http.StatusBadRequest)
			So(get(h, "/api/resolve?link=https://x.example/").Code, ShouldEqual, http.StatusNotFound)
			So(get(h, "/api/resolve?link=https://voe.sx/e/broken").Code, ShouldEqual, http.StatusBadGateway)
		})

		Convey("Extractors lists names and capabilities", func() {
			rec := get(h, "/api/extractors")
			var infos []extractorInfo
			So(json.Unmarshal(rec.Body.Bytes(), &infos), ShouldBeNil)
			So(infos, ShouldHaveLength, 2)
			So(infos[0].Name, ShouldEqual, "Moviesapi")
			So(infos[0].Servers, ShouldBeTrue)
			So(infos[1].Servers, ShouldBeFalse)
		})

		Convey("Servers parses the type", func() {
			rec := get(h, "/api/servers/Moviesapi?type=movie:603")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "movie:603")

			So(get(h, "/api/servers/Moviesapi?type=book:1").Code, ShouldEqual, http.StatusBadRequest)
			So(get(h, "/api/servers/VOE?type=movie:1").Code, ShouldEqual, http.StatusNotImplemented)
		})

		Convey("ServersAll reports per-extractor errors", func() {
			rec := get(h, "/api/servers?type=tv:1:1:2")
			var groups []group
			So(json.Unmarshal(rec.Body.Bytes(), &groups), ShouldBeNil)
			So(groups, ShouldHaveLength, 2)
			So(groups[1].Error, ShouldEqual, "down")
		})

		Convey("CORS preflight is answered", func() {
			req := httptest.NewRequest(http.MethodOptions, "/api/resolve", nil)
			req.Header.Set("Origin", "http://player.local")
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})
	})
}
