package network

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidsan-cli/vidsan/errs"
)

// dohServer answers RFC 8484 POST queries with a fixed A record.
func dohServer(calls *atomic.Int32, ip string, ttl uint32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Content-Type") != dohContentType {
			http.Error(w, "bad content type", http.StatusUnsupportedMediaType)
			return
		}

		wire, _ := io.ReadAll(r.Body)
		query := new(dns.Msg)
		if err := query.Unpack(wire); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		reply := new(dns.Msg)
		reply.SetReply(query)
		if query.Question[0].Qtype == dns.TypeA {
			reply.Answer = append(reply.Answer, &dns.A{
				Hdr: dns.RR_Header{Name: query.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttl},
				A:   net.ParseIP(ip),
			})
		}

		packed, _ := reply.Pack()
		w.Header().Set("Content-Type", dohContentType)
		_, _ = w.Write(packed)
	}))
}

func failingServer(calls *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
}

func TestResolver(t *testing.T) {
	Convey("Given a healthy primary resolver", t, func() {
		var calls atomic.Int32
		primary := dohServer(&calls, "10.1.2.3", 300)
		defer primary.Close()

		resolver := NewResolver(primary.URL, "", 0)

		Convey("It returns the A record", func() {
			ips, err := resolver.LookupHost(context.Background(), "vixcloud.co")
			So(err, ShouldBeNil)
			So(ips, ShouldResemble, []string{"10.1.2.3"})
		})

		Convey("Repeated lookups are served from the cache", func() {
			_, _ = resolver.LookupHost(context.Background(), "vixcloud.co")
			_, _ = resolver.LookupHost(context.Background(), "vixcloud.co")
			So(calls.Load(), ShouldEqual, 1)
		})

		Convey("IP literals skip the network", func() {
			ips, err := resolver.LookupHost(context.Background(), "192.0.2.1")
			So(err, ShouldBeNil)
			So(ips, ShouldResemble, []string{"192.0.2.1"})
			So(calls.Load(), ShouldEqual, 0)
		})
	})

	Convey("Given a failing primary resolver", t, func() {
		var primaryCalls, fallbackCalls atomic.Int32
		primary := failingServer(&primaryCalls)
		defer primary.Close()

		Convey("When the fallback answers", func() {
			fallback := dohServer(&fallbackCalls, "10.9.9.9", 60)
			defer fallback.Close()

			ips, err := NewResolver(primary.URL, fallback.URL, 0).LookupHost(context.Background(), "fs8.lol")

			Convey("The fallback answer is used after one primary attempt", func() {
				So(err, ShouldBeNil)
				So(ips, ShouldResemble, []string{"10.9.9.9"})
				So(primaryCalls.Load(), ShouldEqual, 1)
				So(fallbackCalls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the fallback fails too", func() {
			fallback := failingServer(&fallbackCalls)
			defer fallback.Close()

			_, err := NewResolver(primary.URL, fallback.URL, 0).LookupHost(context.Background(), "fs8.lol")

			Convey("A dns network error is returned after exactly one fallback attempt", func() {
				var netErr *errs.NetworkError
				So(errors.As(err, &netErr), ShouldBeTrue)
				So(netErr.Op, ShouldEqual, "dns")
				So(fallbackCalls.Load(), ShouldEqual, 1)
			})
		})
	})
}

func TestLimiter(t *testing.T) {
	Convey("Given a disabled limiter", t, func() {
		limiter := NewLimiter(0)

		Convey("It is nil and never blocks", func() {
			So(limiter, ShouldBeNil)
			So(limiter.Take(context.Background(), "host"), ShouldBeNil)
		})
	})

	Convey("Given an enabled limiter", t, func() {
		limiter := NewLimiter(1000)

		Convey("Each host gets its own bucket", func() {
			So(limiter.Take(context.Background(), "a"), ShouldBeNil)
			So(limiter.Take(context.Background(), "b"), ShouldBeNil)
			So(limiter.limiters.Size(), ShouldEqual, 2)
		})
	})

	Convey("Given a limiter allowing one request per second", t, func() {
		limiter := NewLimiter(1)
		So(limiter.Take(context.Background(), "slow"), ShouldBeNil)

		Convey("A cancelled caller does not wait for the next slot", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			start := time.Now()
			err := limiter.Take(ctx, "slow")
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			So(time.Since(start), ShouldBeLessThan, 500*time.Millisecond)
		})

		Convey("An already cancelled caller returns at once", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			So(errors.Is(limiter.Take(ctx, "fresh"), context.Canceled), ShouldBeTrue)
			So(limiter.limiters.Size(), ShouldEqual, 1)
		})
	})
}

func TestLimitedClientHonorsCancellation(t *testing.T) {
	Convey("Given a client paced to one request per second", t, func() {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		client := New(Options{Limiter: NewLimiter(1)})
		_, err := client.Get(context.Background(), server.URL)
		So(err, ShouldBeNil)

		Convey("A request cancelled while waiting never reaches the host", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			_, err := client.Get(ctx, server.URL)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			So(hits.Load(), ShouldEqual, 1)
		})
	})
}
