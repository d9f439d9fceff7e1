package extractor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidsan-cli/vidsan/crypt"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/media"
)

func sealedPlayback(plain string, tamper bool) crypt.Envelope {
	key := []byte("0123456789abcdef0123456789abcdef")
	iv := []byte("abcdefghijkl")

	sealed, err := crypt.Encrypt([]byte(plain), key, iv, crypt.GCM)
	if err != nil {
		panic(err)
	}
	if tamper {
		sealed[len(sealed)-1] ^= 0xff
	}

	enc := base64.RawURLEncoding.EncodeToString
	return crypt.Envelope{
		IV:       enc(iv),
		Payload:  enc(sealed),
		KeyParts: []string{enc(key[:16]), enc(key[16:])},
	}
}

func filemoonServer(envelope crypt.Envelope, parent *string) *httptest.Server {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/api/videos/abc123/embed/details", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"embed_frame_url": server.URL + "/frame/abc123"})
	})
	mux.HandleFunc("/api/videos/abc123/embed/playback", func(w http.ResponseWriter, r *http.Request) {
		*parent = r.Header.Get("X-Embed-Parent")
		_ = json.NewEncoder(w).Encode(map[string]any{"playback": envelope})
	})
	server = httptest.NewServer(mux)
	return server
}

func TestFilemoon(t *testing.T) {
	Convey("Given a Filemoon embed link", t, func() {
		var parent string
		ctx := context.Background()

		Convey("When the playback envelope is intact", func() {
			server := filemoonServer(sealedPlayback(`{"sources":[{"url":"https://cdn/x.m3u8"}]}`, false), &parent)
			defer server.Close()

			link := server.URL + "/e/abc123"
			video, err := NewFilemoon(testEnv(nil)).Extract(ctx, link)

			Convey("It decrypts the first source", func() {
				So(err, ShouldBeNil)
				So(video.Source, ShouldEqual, "https://cdn/x.m3u8")
				So(video.MimeType, ShouldEqual, media.HLS)
				So(video.Headers.Get("Referer"), ShouldEqual, server.URL+"/")
				So(video.Headers.Get("Origin"), ShouldEqual, server.URL)
			})

			Convey("It names the embedding page", func() {
				So(parent, ShouldEqual, link)
			})
		})

		Convey("When the authentication tag was altered", func() {
			server := filemoonServer(sealedPlayback(`{"sources":[{"url":"https://cdn/x.m3u8"}]}`, true), &parent)
			defer server.Close()

			_, err := NewFilemoon(testEnv(nil)).Extract(ctx, server.URL+"/e/abc123")

			Convey("It fails with a decryption error", func() {
				var decrypt *errs.DecryptionError
				So(errors.As(err, &decrypt), ShouldBeTrue)
				So(errs.Recoverable(err), ShouldBeTrue)
			})
		})

		Convey("When the decrypted source list is empty", func() {
			server := filemoonServer(sealedPlayback(`{"sources":[]}`, false), &parent)
			defer server.Close()

			_, err := NewFilemoon(testEnv(nil)).Extract(ctx, server.URL+"/d/abc123")

			Convey("It fails with an extraction error", func() {
				var extraction *errs.ExtractionError
				So(errors.As(err, &extraction), ShouldBeTrue)
				So(extraction.Step, ShouldEqual, "sources")
			})
		})

		Convey("When the link has no video id", func() {
			_, err := NewFilemoon(testEnv(nil)).Extract(ctx, "https://filemoon.site/about")
			So(errs.Recoverable(err), ShouldBeTrue)
		})
	})
}
