package version

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidsan-cli/vidsan/filesystem"
	"github.com/vidsan-cli/vidsan/network"
	"github.com/vidsan-cli/vidsan/where"
)

func TestCompare(t *testing.T) {
	Convey("Compare", t, func() {
		c, err := Compare("v1.2.3", "1.2.3")
		So(err, ShouldBeNil)
		So(c, ShouldEqual, 0)

		c, _ = Compare("1.10.0", "1.9.9")
		So(c, ShouldEqual, 1)

		c, _ = Compare("0.2.9", "0.3.0")
		So(c, ShouldEqual, -1)

		c, _ = Compare("1.4", "1.4.0")
		So(c, ShouldEqual, 0)

		c, _ = Compare("1.0.0-rc.1", "1.0.0")
		So(c, ShouldEqual, -1)

		c, _ = Compare("v2.0.0+build.7", "2.0.0-beta")
		So(c, ShouldEqual, 1)

		_, err = Compare("latest", "0.3.0")
		So(err, ShouldNotBeNil)

		_, err = Compare("1.2.x", "0.3.0")
		So(err, ShouldNotBeNil)
	})
}

func TestLatest(t *testing.T) {
	Convey("Given a cached release", t, func() {
		filesystem.SetMemMapFs()
		t.Setenv(where.EnvCachePath, "/cache")
		Reset(filesystem.SetOsFs)

		So(cacher().Set("9.9.9"), ShouldBeNil)

		Convey("Latest does not hit the network", func() {
			ver, err := Latest(context.Background(), network.New(network.Options{}))
			So(err, ShouldBeNil)
			So(ver, ShouldEqual, "9.9.9")
		})
	})
}
