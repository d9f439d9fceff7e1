package extractor

import (
	"context"
	"crypto/aes"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidsan-cli/vidsan/crypt"
	"github.com/vidsan-cli/vidsan/domain"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/key"
	"github.com/vidsan-cli/vidsan/media"
)

func names(servers []media.Server) []string {
	return lo.Map(servers, func(s media.Server, _ int) string { return s.Name })
}

func settings(values map[string]string) func(string) string {
	return func(k string) string { return values[k] }
}

func TestVidrock(t *testing.T) {
	const passphrase = "x7k9mPqT2rWvY8zA5bC3nF6hJ2lK4mN9"

	Convey("Given the Vidrock api", t, func() {
		var token string
		mux := http.NewServeMux()
		var server *httptest.Server
		mux.HandleFunc("/api/movie/", func(w http.ResponseWriter, r *http.Request) {
			token = strings.TrimPrefix(r.URL.Path, "/api/movie/")
			_, _ = w.Write([]byte(`{"Astra":{"url":"https://cdn.example/astra.m3u8"},"Atlas":{"url":"` + server.URL + `/atlas"},"Broken":{"nope":1}}`))
		})
		mux.HandleFunc("/atlas", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"resolution":720,"url":"https://cdn.example/720.mp4"},{"resolution":1080,"url":"https://cdn.example/1080.mp4"}]`))
		})
		server = httptest.NewServer(mux)
		defer server.Close()

		env := testEnv(nil)
		env.Setting = settings(map[string]string{key.SecretsVidrockPassphrase: passphrase})
		v := NewVidrock(env)
		v.base = server.URL

		servers, err := v.Servers(context.Background(), media.Movie{ID: "603"})

		Convey("It lists the named servers in api order", func() {
			So(err, ShouldBeNil)
			So(names(servers), ShouldResemble, []string{"Astra (Vidrock)", "Atlas (Vidrock)"})
			So(servers[0].Src, ShouldEndWith, "#Astra")
		})

		Convey("It seals the id with the passphrase", func() {
			sealed, err := base64.RawURLEncoding.DecodeString(token)
			So(err, ShouldBeNil)
			plain, err := crypt.DecryptWithKey(sealed, []byte(passphrase), []byte(passphrase)[:aes.BlockSize], crypt.CBC)
			So(err, ShouldBeNil)
			So(string(plain), ShouldEqual, "603")
		})

		Convey("It resolves a plain server", func() {
			video, err := v.Extract(context.Background(), servers[0].Src)
			So(err, ShouldBeNil)
			So(video.Source, ShouldEqual, "https://cdn.example/astra.m3u8")
			So(video.MimeType, ShouldEqual, media.HLS)
		})

		Convey("It picks the highest Atlas resolution", func() {
			video, err := v.Extract(context.Background(), servers[1].Src)
			So(err, ShouldBeNil)
			So(video.Source, ShouldEqual, "https://cdn.example/1080.mp4")
			So(video.MimeType, ShouldEqual, media.MP4)
		})

		Convey("It fails on an unknown server name", func() {
			_, err := v.Extract(context.Background(), strings.Replace(servers[0].Src, "#Astra", "#Nope", 1))
			So(errs.Recoverable(err), ShouldBeTrue)
		})
	})

	Convey("Given a Vidrock api that is down", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		env := testEnv(nil)
		env.Setting = settings(map[string]string{key.SecretsVidrockPassphrase: passphrase})
		v := NewVidrock(env)
		v.base = server.URL

		servers, err := v.Servers(context.Background(), media.Movie{ID: "603"})

		Convey("It lists no servers instead of failing", func() {
			So(err, ShouldBeNil)
			So(servers, ShouldBeEmpty)
		})

		Convey("Server still reports that nothing is playable", func() {
			_, err := v.Server(context.Background(), media.Movie{ID: "603"})
			So(errs.Recoverable(err), ShouldBeTrue)
		})
	})

	Convey("Without a passphrase Vidrock cannot build its urls", t, func() {
		_, err := NewVidrock(testEnv(nil)).Servers(context.Background(), media.Movie{ID: "603"})
		So(errs.Recoverable(err), ShouldBeTrue)
	})
}

func TestPrimeSrc(t *testing.T) {
	Convey("Given a PrimeSrc listing with repeated hosts", t, func() {
		var kind string
		mux := http.NewServeMux()
		mux.HandleFunc("/api/v1/s", func(w http.ResponseWriter, r *http.Request) {
			kind = r.URL.Query().Get("type")
			_, _ = w.Write([]byte(`{"servers":[{"name":"Voe","key":"a1"},{"name":"Filemoon","key":"b2"},{"name":"Voe","key":"c3"}]}`))
		})
		mux.HandleFunc("/api/v1/l", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"link":"https://voe.sx/e/` + r.URL.Query().Get("key") + `"}`))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		delegate := &recorder{}
		p := NewPrimeSrc(testEnv(delegate))
		p.base = server.URL

		servers, err := p.Servers(context.Background(), media.Episode{TvShowID: "1399", Season: 1, Number: 1})

		Convey("It numbers duplicate names in order", func() {
			So(err, ShouldBeNil)
			So(kind, ShouldEqual, "tv")
			So(names(servers), ShouldResemble, []string{"Voe 1 (PrimeSrc)", "Filemoon (PrimeSrc)", "Voe 2 (PrimeSrc)"})
			So(servers[2].ID, ShouldEqual, "Voe-c3 (PrimeSrc)")
		})

		Convey("It hands the resolved link to the delegate", func() {
			_, err := p.Extract(context.Background(), servers[2].Src)
			So(err, ShouldBeNil)
			So(delegate.links, ShouldResemble, []string{"https://voe.sx/e/c3"})
		})
	})
}

func TestPrimeSrcDown(t *testing.T) {
	Convey("Given a PrimeSrc listing that is down", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		p := NewPrimeSrc(testEnv(nil))
		p.base = server.URL

		servers, err := p.Servers(context.Background(), media.Movie{ID: "603"})

		Convey("It lists no servers instead of failing", func() {
			So(err, ShouldBeNil)
			So(servers, ShouldBeEmpty)
		})
	})
}

func TestFrembed(t *testing.T) {
	Convey("Given Frembed link fields", t, func() {
		servers := frembedServers(map[string]any{
			"link1":       "https://crystaltreatmenteast.com/e/1",
			"link3":       "https://uqload.net/x",
			"link2vostfr": "https://myvidplay.com/e/2",
			"link1vo":     "",
			"title":       "ignored",
		})

		Convey("It names servers after their host and language", func() {
			So(names(servers), ShouldResemble, []string{"Voe (French)", "Uqload (French)", "Dood (VOSTFR)"})
		})

		Convey("It ignores a leading www in the host", func() {
			So(frembedName("https://www.uqload.net/e/1"), ShouldEqual, "Uqload")
			So(frembedName("https://WWW.crystaltreatmenteast.com/e/1"), ShouldEqual, "Voe")
			So(frembedName("uqload.net/x"), ShouldEqual, "Uqload")
		})

		Convey("It numbers ids across every language slot", func() {
			So(lo.Map(servers, func(s media.Server, _ int) string { return s.ID }), ShouldResemble, []string{"link0", "link2", "link8"})
		})
	})

	Convey("Given the Frembed api", t, func() {
		var query string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query = r.URL.Path + "?" + r.URL.RawQuery
			_, _ = w.Write([]byte(`{"link1vo":"https://uqload.net/y"}`))
		}))
		defer server.Close()

		f := NewFrembed(testEnv(nil))
		f.base = server.URL

		servers, err := f.Servers(context.Background(), media.Episode{TvShowID: "1399", Season: 2, Number: 3})
		So(err, ShouldBeNil)
		So(query, ShouldEqual, "/api/series?epi=3&id=1399&idType=tmdb&sa=2")
		So(names(servers), ShouldResemble, []string{"Uqload (VO)"})

		_, err = f.Extract(context.Background(), "https://frembed.life/x")
		So(errors.Is(err, errs.ErrUnsupported), ShouldBeTrue)
	})
}

const frenchStreamMovie = `<html><script>
var playerUrls = {"Uqload": {"Default": "https://uqload.net/a", "VFF": "https://uqload.net/a", "VOSTFR": "https://uqload.net/b"},
	"VIDZY": {"Default": "https://vidzy.org/x"},
	"Dood.Stream": {"Default": "https://dood.to/bigwar5/x", "VFQ": "https://dood.to/ok"},
	"Voe": {"VOSTFR": "https://voe.sx/e/1", "Default": "https://voe.sx/e/0", "VFQ": "https://voe.sx/e/2", "Empty": ""}};
</script></html>`

const frenchStreamShow = `<html><div class="fullsfeature">
	<div class="selink"><span>VF</span><ul>
		<li><a href="https://uqload.net/e1"> Uqload </a></li>
		<li><a href="https://netu.tv/e1">Netu</a></li>
		<li><a href="https://voe.sx/e1">Voe</a></li>
		<li><a href="https://voe.sx/blank"> </a></li>
	</ul></div>
	<div class="selink"><span>VF</span><ul><li><a href="https://uqload.net/e2">Uqload</a></li></ul></div>
	<div class="selink"><span>VOSTFR</span><ul><li><a href="https://uqload.net/v1">Uqload</a></li></ul></div>
</div></html>`

func TestFrenchStream(t *testing.T) {
	Convey("Given a FrenchStream movie page", t, func() {
		servers, err := movieServers(document(frenchStreamMovie))

		Convey("It orders languages and drops duplicated or ignored entries", func() {
			So(err, ShouldBeNil)
			So(names(servers), ShouldResemble, []string{
				"Uqload (VFF)", "Uqload (VOSTFR)",
				"Dood.Stream (VFQ)",
				"Voe", "Voe (VFQ)", "Voe (VOSTFR)",
			})
			So(servers[0].ID, ShouldEqual, "SRVUqloadVFF")
			So(servers[3].Src, ShouldEqual, "https://voe.sx/e/0")
		})
	})

	Convey("Given a FrenchStream show page", t, func() {
		f := NewFrenchStream(Env{})

		Convey("It lists the links of the requested episode", func() {
			servers, err := f.episodeServers(document(frenchStreamShow), media.Episode{TvShowID: "9", Season: 1, Number: 1})
			So(err, ShouldBeNil)
			So(names(servers), ShouldResemble, []string{"Uqload", "Voe"})
			So(servers[1].ID, ShouldEqual, "1")
		})

		Convey("It honors the configured language", func() {
			f := NewFrenchStream(Env{Setting: settings(map[string]string{key.ProvidersFrenchStreamLanguage: "VOSTFR"})})
			servers, err := f.episodeServers(document(frenchStreamShow), media.Episode{TvShowID: "9", Season: 1, Number: 1})
			So(err, ShouldBeNil)
			So(servers[0].Src, ShouldEqual, "https://uqload.net/v1")
		})

		Convey("It fails when the episode does not exist", func() {
			_, err := f.episodeServers(document(frenchStreamShow), media.Episode{TvShowID: "9", Season: 1, Number: 5})
			So(errs.Recoverable(err), ShouldBeTrue)
		})

		Convey("It rejects episode numbers below one instead of wrapping around", func() {
			for _, number := range []int{0, -1} {
				servers, err := f.episodeServers(document(frenchStreamShow), media.Episode{TvShowID: "9", Season: 1, Number: number})
				So(servers, ShouldBeEmpty)
				var extraction *errs.ExtractionError
				So(errors.As(err, &extraction), ShouldBeTrue)
			}
		})
	})

	Convey("Given a FrenchStream site", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/films/42", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(frenchStreamMovie))
		})
		mux.HandleFunc("/newplayer/1", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/final/1", http.StatusFound)
		})
		mux.HandleFunc("/final/1", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		delegate := &recorder{}
		env := testEnv(delegate)
		env.Setting = settings(map[string]string{key.ProvidersFrenchStreamURL: server.URL})
		f := NewFrenchStream(env)

		Convey("Servers reads the movie page on the configured address", func() {
			servers, err := f.Servers(context.Background(), media.Movie{ID: "42"})
			So(err, ShouldBeNil)
			So(servers, ShouldHaveLength, 6)
		})

		Convey("Extract follows player redirects before delegating", func() {
			_, err := f.Extract(context.Background(), server.URL+"/newplayer/1")
			So(err, ShouldBeNil)
			So(delegate.links, ShouldResemble, []string{server.URL + "/final/1"})
		})
	})
}

func TestStreamingCommunity(t *testing.T) {
	Convey("Given a StreamingCommunity site tracked for domain changes", t, func() {
		var version, iframeQuery string
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("home"))
		})
		mux.HandleFunc("/it/", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<div id="app" data-page='{"component":"Home","version":"v9"}'></div>`))
		})
		mux.HandleFunc("/it/iframe/", func(w http.ResponseWriter, r *http.Request) {
			version, iframeQuery = r.Header.Get("x-inertia-version"), r.URL.Path+"?"+r.URL.RawQuery
			_, _ = w.Write([]byte(`<iframe src="https://vixcloud.co/embed/42?token=t"></iframe>`))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		delegate := &recorder{}
		env := testEnv(delegate)
		env.Language = "it"
		env.Tracker = domain.NewTracker(env.Client, nil)
		env.Setting = settings(map[string]string{key.ProvidersStreamingCommunityURL: server.URL})
		s := NewStreamingCommunity(env)

		Convey("Servers returns the Vixcloud player for a movie", func() {
			servers, err := s.Servers(context.Background(), media.Movie{ID: "42-film"})
			So(err, ShouldBeNil)
			So(servers, ShouldHaveLength, 1)
			So(servers[0].Name, ShouldEqual, "Vixcloud")
			So(servers[0].ID, ShouldEqual, "42-film")
			So(servers[0].Src, ShouldEqual, "https://vixcloud.co/embed/42?language=it&token=t")

			Convey("It sends the discovered Inertia version", func() {
				So(version, ShouldEqual, "v9")
				So(iframeQuery, ShouldEqual, "/it/iframe/42?language=it")
			})

			Convey("The tracker holds the discovered address", func() {
				state, err := env.Tracker.Peek("StreamingCommunity")
				So(err, ShouldBeNil)
				So(state.BaseURL, ShouldEqual, server.URL+"/")
				So(state.Phase, ShouldEqual, domain.Ready)
			})
		})

		Convey("Servers addresses episodes by the site episode id", func() {
			_, err := s.Servers(context.Background(), media.Episode{TvShowID: "7-show", Season: 1, Number: 2, EpisodeID: "77"})
			So(err, ShouldBeNil)
			So(iframeQuery, ShouldEqual, "/it/iframe/7?episode_id=77&next_episode=1&language=it")
		})

		Convey("Servers needs the site episode id", func() {
			_, err := s.Servers(context.Background(), media.Episode{TvShowID: "7-show", Season: 1, Number: 2})
			So(errs.Recoverable(err), ShouldBeTrue)
		})

		Convey("Extract delegates with the language hint", func() {
			_, err := s.Extract(context.Background(), "https://vixcloud.co/embed/42?token=t")
			So(err, ShouldBeNil)
			So(delegate.links, ShouldResemble, []string{"https://vixcloud.co/embed/42?language=it&token=t"})
		})
	})
}
