package network

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/andybalholm/brotli"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidsan-cli/vidsan/errs"
)

// stubTransport counts round trips per mode and answers with fn.
type stubTransport struct {
	calls [2]atomic.Int32
	fn    func(Mode, *http.Request) (*http.Response, error)
}

func (s *stubTransport) build(mode Mode) http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		s.calls[mode].Add(1)
		return s.fn(mode, req)
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func ok(req *http.Request, body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

func tlsFailure() error {
	return fmt.Errorf("tls: failed to verify certificate: %w", x509.UnknownAuthorityError{})
}

func TestInsecureFallback(t *testing.T) {
	Convey("Given a host whose certificate fails validation", t, func() {
		stub := &stubTransport{}
		client := New(Options{Transport: stub.build})

		Convey("When the insecure transport succeeds", func() {
			stub.fn = func(mode Mode, req *http.Request) (*http.Response, error) {
				if mode == Secure {
					return nil, tlsFailure()
				}
				return ok(req, "mirror"), nil
			}

			resp, err := client.Get(context.Background(), "https://mirror.example/")

			Convey("It retries exactly once without verification", func() {
				So(err, ShouldBeNil)
				So(resp.String(), ShouldEqual, "mirror")
				So(resp.Mode, ShouldEqual, Insecure)
				So(stub.calls[Secure].Load(), ShouldEqual, 1)
				So(stub.calls[Insecure].Load(), ShouldEqual, 1)
			})

			Convey("It leaves the original client secure", func() {
				So(client.Mode(), ShouldEqual, Secure)
			})
		})

		Convey("When the insecure transport fails as well", func() {
			stub.fn = func(mode Mode, req *http.Request) (*http.Response, error) {
				if mode == Secure {
					return nil, tlsFailure()
				}
				return nil, errors.New("connection reset")
			}

			_, err := client.Get(context.Background(), "https://mirror.example/")

			Convey("It returns a network error after a single retry", func() {
				var netErr *errs.NetworkError
				So(errors.As(err, &netErr), ShouldBeTrue)
				So(netErr.Op, ShouldEqual, "insecure retry")
				So(stub.calls[Secure].Load(), ShouldEqual, 1)
				So(stub.calls[Insecure].Load(), ShouldEqual, 1)
			})
		})

		Convey("When the fallback is disabled", func() {
			stub.fn = func(Mode, *http.Request) (*http.Response, error) {
				return nil, tlsFailure()
			}
			client := New(Options{Transport: stub.build, NoInsecureFallback: true})

			_, err := client.Get(context.Background(), "https://mirror.example/")

			Convey("It never retries", func() {
				So(errs.IsTLSValidation(err), ShouldBeTrue)
				So(stub.calls[Insecure].Load(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given an insecure client", t, func() {
		stub := &stubTransport{fn: func(Mode, *http.Request) (*http.Response, error) {
			return nil, tlsFailure()
		}}
		client := New(Options{Mode: Insecure, Transport: stub.build})

		_, err := client.Get(context.Background(), "https://mirror.example/")

		Convey("Failures are returned without a retry", func() {
			So(err, ShouldNotBeNil)
			So(stub.calls[Insecure].Load(), ShouldEqual, 1)
			So(stub.calls[Secure].Load(), ShouldEqual, 0)
		})
	})
}

func TestInsecureFallbackAgainstSelfSignedServer(t *testing.T) {
	Convey("Given a TLS server with a self-signed certificate", t, func() {
		server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("hello"))
		}))
		defer server.Close()

		client := New(Options{Transport: func(mode Mode) http.RoundTripper {
			return &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: mode == Insecure}}
		}})

		resp, err := client.Get(context.Background(), server.URL)

		Convey("The body arrives through the insecure client", func() {
			So(err, ShouldBeNil)
			So(resp.String(), ShouldEqual, "hello")
			So(resp.Mode, ShouldEqual, Insecure)
		})
	})
}

func TestFingerprintTransportFallback(t *testing.T) {
	for _, tc := range []struct {
		name  string
		http2 bool
		proto int32
	}{
		{name: "HTTP/1.1", http2: false, proto: 1},
		{name: "HTTP/2", http2: true, proto: 2},
	} {
		Convey("Given a self-signed "+tc.name+" server and the fingerprinted transport", t, func() {
			var proto atomic.Int32
			server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				proto.Store(int32(r.ProtoMajor))
				_, _ = w.Write([]byte("fingerprinted"))
			}))
			server.EnableHTTP2 = tc.http2
			server.StartTLS()
			defer server.Close()

			resp, err := New(Options{}).Get(context.Background(), server.URL)

			Convey("The request succeeds once, without verification", func() {
				So(err, ShouldBeNil)
				So(resp.String(), ShouldEqual, "fingerprinted")
				So(resp.Mode, ShouldEqual, Insecure)
				So(proto.Load(), ShouldEqual, tc.proto)
			})
		})
	}
}

func TestFingerprintTransportNoFallback(t *testing.T) {
	Convey("Given a self-signed server and the fallback turned off", t, func() {
		server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("unreachable"))
		}))
		defer server.Close()

		_, err := New(Options{NoInsecureFallback: true}).Get(context.Background(), server.URL)

		Convey("The certificate failure is reported as such", func() {
			So(err, ShouldNotBeNil)
			So(errs.IsTLSValidation(err), ShouldBeTrue)
		})
	})
}

func TestRedirectWalk(t *testing.T) {
	Convey("Given a chain A -> B -> C", t, func() {
		c := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("content from C"))
		}))
		defer c.Close()

		b := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, c.URL+"/final", http.StatusFound)
		}))
		defer b.Close()

		a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, b.URL+"/moved", http.StatusMovedPermanently)
		}))
		defer a.Close()

		var changes [][2]string
		client := New(Options{OnHostChange: func(from, to string) {
			changes = append(changes, [2]string{from, to})
		}})

		resp, err := client.Get(context.Background(), a.URL+"/start")

		Convey("The content comes from C", func() {
			So(err, ShouldBeNil)
			So(resp.String(), ShouldEqual, "content from C")
			So(resp.FinalURL, ShouldEqual, c.URL+"/final")
			So(resp.Hops, ShouldResemble, []string{b.URL + "/moved", c.URL + "/final"})
		})

		Convey("Only B's host is reported", func() {
			So(len(changes), ShouldEqual, 1)
			So(changes[0][0], ShouldEqual, hostOf(a.URL))
			So(changes[0][1], ShouldEqual, hostOf(b.URL))
		})
	})

	Convey("Given a redirect to a denylisted host", t, func() {
		target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("parked"))
		}))
		defer target.Close()

		port := target.URL[strings.LastIndex(target.URL, ":"):]
		origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "http://localhost"+port+"/", http.StatusFound)
		}))
		defer origin.Close()

		reported := false
		client := New(Options{
			Denylist:     []string{"localhost"},
			OnHostChange: func(string, string) { reported = true },
		})

		_, err := client.Get(context.Background(), origin.URL)

		Convey("The host change is not reported", func() {
			So(err, ShouldBeNil)
			So(reported, ShouldBeFalse)
		})
	})

	Convey("Given a redirect loop", t, func() {
		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/a" {
				http.Redirect(w, r, server.URL+"/b", http.StatusFound)
				return
			}
			http.Redirect(w, r, server.URL+"/a", http.StatusFound)
		}))
		defer server.Close()

		_, err := New(Options{}).Get(context.Background(), server.URL+"/a")

		Convey("It stops with a network error", func() {
			var netErr *errs.NetworkError
			So(errors.As(err, &netErr), ShouldBeTrue)
			So(netErr.Op, ShouldEqual, "redirect")
		})
	})

	Convey("Given a POST answered with 303", t, func() {
		var method atomic.Value
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/submit" {
				http.Redirect(w, r, "/result", http.StatusSeeOther)
				return
			}
			method.Store(r.Method)
			_, _ = w.Write([]byte("done"))
		}))
		defer server.Close()

		_, err := New(Options{}).Get(context.Background(), server.URL+"/submit", WithForm(url.Values{"a": {"1"}}))

		Convey("The follow-up request is a GET", func() {
			So(err, ShouldBeNil)
			So(method.Load(), ShouldEqual, http.MethodGet)
		})
	})
}

func TestResponses(t *testing.T) {
	Convey("Given a server", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/br":
				var buf bytes.Buffer
				bw := brotli.NewWriter(&buf)
				_, _ = bw.Write([]byte("compressed with brotli"))
				_ = bw.Close()
				w.Header().Set("Content-Encoding", "br")
				_, _ = w.Write(buf.Bytes())
			case "/json":
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"streaming_url":"https://cdn/x.m3u8"}`))
			case "/headers":
				_, _ = w.Write([]byte(r.Header.Get("Referer") + "|" + r.Header.Get("User-Agent") + "|" + r.Header.Get("X-Test")))
			case "/html":
				_, _ = w.Write([]byte(`<html><body><iframe src="/embed/1"></iframe></body></html>`))
			default:
				http.NotFound(w, r)
			}
		}))
		defer server.Close()

		client := New(Options{UserAgent: "vidsan-test"})
		ctx := context.Background()

		Convey("Brotli bodies are decoded", func() {
			body, err := client.GetString(ctx, server.URL+"/br")
			So(err, ShouldBeNil)
			So(body, ShouldEqual, "compressed with brotli")
		})

		Convey("JSON bodies are decoded into values", func() {
			var v struct {
				StreamingURL string `json:"streaming_url"`
			}
			So(client.GetJSON(ctx, server.URL+"/json", &v), ShouldBeNil)
			So(v.StreamingURL, ShouldEqual, "https://cdn/x.m3u8")
		})

		Convey("Referer, user agent and extra headers are sent", func() {
			body, err := client.GetString(ctx, server.URL+"/headers", WithReferer("https://ref/"), WithHeader("X-Test", "1"))
			So(err, ShouldBeNil)
			So(body, ShouldEqual, "https://ref/|vidsan-test|1")
		})

		Convey("HTML documents resolve against the final URL", func() {
			doc, err := client.GetDocument(ctx, server.URL+"/html")
			So(err, ShouldBeNil)
			src, _ := doc.Find("iframe").Attr("src")
			So(src, ShouldEqual, "/embed/1")
			So(doc.Url.String(), ShouldEqual, server.URL+"/html")
		})

		Convey("Error statuses become network errors", func() {
			_, err := client.Get(ctx, server.URL+"/missing")
			var netErr *errs.NetworkError
			So(errors.As(err, &netErr), ShouldBeTrue)
			So(netErr.Status, ShouldEqual, http.StatusNotFound)
			So(errs.Recoverable(err), ShouldBeTrue)
		})
	})
}

func TestClientImmutability(t *testing.T) {
	Convey("Given a secure client", t, func() {
		stub := &stubTransport{fn: func(_ Mode, req *http.Request) (*http.Response, error) { return ok(req, ""), nil }}
		client := New(Options{Transport: stub.build, Denylist: []string{"a"}})

		Convey("With returns a new value and keeps the receiver", func() {
			insecure := client.With(Insecure)
			So(insecure, ShouldNotEqual, client)
			So(insecure.Mode(), ShouldEqual, Insecure)
			So(client.Mode(), ShouldEqual, Secure)
			So(client.With(Secure), ShouldEqual, client)
		})

		Convey("Options returns a copy", func() {
			opts := client.Options()
			opts.Denylist[0] = "b"
			So(client.Options().Denylist, ShouldResemble, []string{"a"})
		})
	})
}

func TestDenied(t *testing.T) {
	Convey("Denied", t, func() {
		list := []string{"streamingcommunityz.green", "*.parking.*"}

		So(Denied(list, "streamingcommunityz.green"), ShouldBeTrue)
		So(Denied(list, "www.streamingcommunityz.green"), ShouldBeTrue)
		So(Denied(list, "STREAMINGCOMMUNITYZ.GREEN."), ShouldBeTrue)
		So(Denied(list, "ads.parking.io"), ShouldBeTrue)
		So(Denied(list, "streamingunity.tv"), ShouldBeFalse)
		So(Denied(nil, "streamingunity.tv"), ShouldBeFalse)
	})
}

func hostOf(raw string) string {
	u, _ := url.Parse(raw)
	return u.Host
}
