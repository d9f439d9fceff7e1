package domain

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidsan-cli/vidsan/network"
)

func TestDirectory(t *testing.T) {
	Convey("Given a portal listing the current address", t, func() {
		portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			href := "https://fs9.lol"
			if r.URL.Path == "/alt" {
				href = "https://fs12.lol/"
			}
			_, _ = w.Write([]byte(`<html><body><div class="current-url-container"><a href="` + href + `">French Stream</a></div></body></html>`))
		}))
		defer portal.Close()

		d := Directory{
			PortalURL: portal.URL + "/",
			Selector:  "div.current-url-container a[href]",
			LogoPath:  "favicon-96x96.png",
		}
		probe := Probe{Provider: "FrenchStream", Client: network.New(network.Options{}), Cache: newMemCache()}

		Convey("The address gains a trailing slash and a logo", func() {
			found, err := d.Discover(context.Background(), probe)
			So(err, ShouldBeNil)
			So(found.BaseURL, ShouldEqual, "https://fs9.lol/")
			So(found.Logo, ShouldEqual, "https://fs9.lol/favicon-96x96.png")
		})

		Convey("A cached portal override is honored", func() {
			probe.Cache.SetProviderCache("FrenchStream", KeyPortalURL, portal.URL+"/alt")
			found, err := d.Discover(context.Background(), probe)
			So(err, ShouldBeNil)
			So(found.BaseURL, ShouldEqual, "https://fs12.lol/")
		})

		Convey("A selector with no match fails", func() {
			d.Selector = "div.missing a"
			_, err := d.Discover(context.Background(), probe)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRedirect(t *testing.T) {
	Convey("Given an old domain redirecting to a new one", t, func() {
		fresh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/it/" {
				_, _ = w.Write([]byte(`<div id="app" data-page='{"component":"Home","version":"4f1c2a"}'></div>`))
				return
			}
			_, _ = w.Write([]byte("home"))
		}))
		defer fresh.Close()
		stale := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, fresh.URL+"/", http.StatusMovedPermanently)
		}))
		defer stale.Close()

		r := Redirect{VersionPath: "it/", LogoPath: "apple-touch-icon.png"}
		probe := Probe{
			Provider: "StreamingCommunity",
			Current:  State{BaseURL: stale.URL + "/"},
			Client:   network.New(network.Options{}),
			Cache:    newMemCache(),
		}

		found, err := r.Discover(context.Background(), probe)

		Convey("The final host and the Inertia version are adopted", func() {
			So(err, ShouldBeNil)
			So(found.BaseURL, ShouldEqual, fresh.URL+"/")
			So(found.Version, ShouldEqual, "4f1c2a")
			So(found.Logo, ShouldEqual, fresh.URL+"/apple-touch-icon.png")
		})
	})
}

func TestChain(t *testing.T) {
	Convey("Given a chain whose first discoverer fails", t, func() {
		failing := DiscovererFunc(func(context.Context, Probe) (Discovery, error) {
			return Discovery{}, errors.New("down")
		})
		working := DiscovererFunc(func(context.Context, Probe) (Discovery, error) {
			return Discovery{BaseURL: "https://ok/"}, nil
		})

		Convey("The first success wins", func() {
			found, err := Chain{failing, working}.Discover(context.Background(), Probe{})
			So(err, ShouldBeNil)
			So(found.BaseURL, ShouldEqual, "https://ok/")
		})

		Convey("All failures are joined", func() {
			_, err := Chain{failing, failing}.Discover(context.Background(), Probe{})
			So(err, ShouldNotBeNil)
		})
	})
}
