package extractor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/media"
	"github.com/vidsan-cli/vidsan/network"
)

// packedSetup unpacks to a jwplayer setup whose file is
// https://cdn.example/master.m3u8.
const packedSetup = `eval(function(p,a,c,k,e,d){return p}('0("1").2({3:[{4:"5://6.7/8.9"}]})',36,10,'jwplayer|v|setup|sources|file|https|cdn|example|master|m3u8'.split('|'),0,{}))`

// recorder is a Delegate that remembers every link handed to it.
type recorder struct {
	mu    sync.Mutex
	links []string
}

func (r *recorder) Extract(_ context.Context, link string) (*media.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links = append(r.links, link)
	return media.NewVideo(link)
}

func testEnv(delegate Delegate) Env {
	return Env{Client: network.New(network.Options{}), Delegate: delegate}
}

func serve(t *testing.T, routes map[string]string) *httptest.Server {
	mux := http.NewServeMux()
	for path, body := range routes {
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		})
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func document(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(err)
	}
	return doc
}

func TestIdentity(t *testing.T) {
	Convey("Given the VOE identity", t, func() {
		id := NewVOE(Env{}).Identity()

		Convey("It matches the main host with or without www", func() {
			So(id.Matches("voe.sx"), ShouldBeTrue)
			So(id.Matches("WWW.VOE.SX"), ShouldBeTrue)
		})

		Convey("It matches aliases and their subdomains", func() {
			So(id.Matches("crystaltreatmenteast.com"), ShouldBeTrue)
			So(id.Matches("cdn.walterprettytheir.com"), ShouldBeTrue)
		})

		Convey("It rejects lookalike hosts", func() {
			So(id.Matches("notvoe.sx"), ShouldBeFalse)
			So(id.Matches("voe.sx.evil.com"), ShouldBeFalse)
			So(id.Matches(""), ShouldBeFalse)
		})
	})

	Convey("Host normalizes links", t, func() {
		So(Host("https://www.Example.com:8443/x"), ShouldEqual, "example.com")
		So(Host("::"), ShouldEqual, "")
	})
}

func TestScrapeHelpers(t *testing.T) {
	Convey("Given a player page", t, func() {
		doc := document(`<html><body>
			<script>var a = 1;</script>
			<script>jwplayer("v").setup({sources: [{file: 'https://cdn.example/v.mp4'}]});</script>
			<iframe src="//player.example/embed/1"></iframe>
		</body></html>`)

		Convey("FindScript returns the script with every marker", func() {
			script, err := FindScript("Test", doc, "jwplayer", "sources")
			So(err, ShouldBeNil)
			source, err := FileSource("Test", script)
			So(err, ShouldBeNil)
			So(source, ShouldEqual, "https://cdn.example/v.mp4")
		})

		Convey("FindScript fails with an extraction error", func() {
			_, err := FindScript("Test", doc, "nothing-here")
			So(errs.Recoverable(err), ShouldBeTrue)
		})

		Convey("FirstIframe makes protocol-relative sources absolute", func() {
			src, err := FirstIframe("Test", doc)
			So(err, ShouldBeNil)
			So(src, ShouldEqual, "https://player.example/embed/1")
		})
	})

	Convey("PackedFragment unpacks the player setup", t, func() {
		text, err := PackedFragment("Test", "<script>"+packedSetup+"</script>")
		So(err, ShouldBeNil)
		So(text, ShouldContainSubstring, `file:"https://cdn.example/master.m3u8"`)
	})

	Convey("Origin keeps scheme and host", t, func() {
		origin, err := Origin("Test", "https://host.example:8080/e/abc?x=1")
		So(err, ShouldBeNil)
		So(origin, ShouldEqual, "https://host.example:8080")
	})
}

func TestSimpleHosts(t *testing.T) {
	Convey("Given hosts that expose the source on the page", t, func() {
		server := serve(t, map[string]string{
			"/fsvid/":      "<html><script>" + packedSetup + "</script></html>",
			"/vidora/":     "<html><script>" + packedSetup + "</script></html>",
			"/gupload/":    `<script>const videoUrl = "https://cdn.example/g.m3u8";</script>`,
			"/dl":          `<script type="text/javascript">jwplayer("p").setup({sources:[{file:"https://cdn.example/s.m3u8"}]});</script>`,
			"/ajax/stream": `{"streaming_url":"https://cdn.example/u.m3u8"}`,
		})
		env := testEnv(nil)
		ctx := context.Background()

		Convey("Fsvid unpacks the packed setup", func() {
			video, err := NewFsvid(env).Extract(ctx, server.URL+"/fsvid/abc")
			So(err, ShouldBeNil)
			So(video.Source, ShouldEqual, "https://cdn.example/master.m3u8")
			So(video.MimeType, ShouldEqual, media.HLS)
		})

		Convey("Vidora sends its own referer with the video", func() {
			video, err := NewVidora(env).Extract(ctx, server.URL+"/vidora/abc")
			So(err, ShouldBeNil)
			So(video.Source, ShouldEqual, "https://cdn.example/master.m3u8")
			So(video.Headers.Get("Referer"), ShouldEqual, "https://vidora.stream")
		})

		Convey("Gupload reads the videoUrl constant", func() {
			video, err := NewGupload(env).Extract(ctx, server.URL+"/gupload/abc")
			So(err, ShouldBeNil)
			So(video.Source, ShouldEqual, "https://cdn.example/g.m3u8")
		})

		Convey("SaveFiles reads the embed page of the file code", func() {
			video, err := NewSaveFiles(env).Extract(ctx, server.URL+"/e/code123")
			So(err, ShouldBeNil)
			So(video.Source, ShouldEqual, "https://cdn.example/s.m3u8")
		})

		Convey("StreamUp reads the stream api", func() {
			s := NewStreamUp(env)
			s.base = server.URL
			video, err := s.Extract(ctx, "https://strmup.to/abc123")
			So(err, ShouldBeNil)
			So(video.Source, ShouldEqual, "https://cdn.example/u.m3u8")
		})

		Convey("A page without a packed script is an extraction error", func() {
			_, err := NewFsvid(env).Extract(ctx, server.URL+"/gupload/abc")
			So(errs.Recoverable(err), ShouldBeTrue)
		})

		Convey("A missing page is an extraction error wrapping the network error", func() {
			_, err := NewGupload(env).Extract(ctx, server.URL+"/missing")
			var netErr *errs.NetworkError
			So(errors.As(err, &netErr), ShouldBeTrue)
			So(netErr.Status, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestMoviesapi(t *testing.T) {
	Convey("Given a Moviesapi page wrapping another player", t, func() {
		var referer string
		mux := http.NewServeMux()
		mux.HandleFunc("/movie/603", func(w http.ResponseWriter, r *http.Request) {
			referer = r.Referer()
			_, _ = w.Write([]byte(`<iframe src="https://vidora.stream/embed/xyz"></iframe>`))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		delegate := &recorder{}
		m := NewMoviesapi(testEnv(delegate))
		m.base = server.URL

		Convey("Server builds the movie and episode links", func() {
			movie, err := m.Server(context.Background(), media.Movie{ID: "603"})
			So(err, ShouldBeNil)
			So(movie.Src, ShouldEqual, server.URL+"/movie/603")

			episode, err := m.Server(context.Background(), media.Episode{TvShowID: "1399", Season: 1, Number: 2})
			So(err, ShouldBeNil)
			So(episode.Src, ShouldEqual, server.URL+"/tv/1399-1-2")
		})

		Convey("Extract hands the iframe to the delegate", func() {
			video, err := m.Extract(context.Background(), server.URL+"/movie/603")
			So(err, ShouldBeNil)
			So(video.Source, ShouldEqual, "https://vidora.stream/embed/xyz")
			So(delegate.links, ShouldResemble, []string{"https://vidora.stream/embed/xyz"})
			So(referer, ShouldEqual, "https://pressplay.top/")
		})
	})
}
