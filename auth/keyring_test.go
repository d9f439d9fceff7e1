package auth

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/zalando/go-keyring"
)

func TestSecrets(t *testing.T) {
	keyring.MockInit()

	Convey("Given an empty keyring", t, func() {
		Convey("GetSecret reports a missing key", func() {
			_, err := GetSecret("secrets.missing")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("A stored secret can be read back and deleted", func() {
			So(SetSecret("secrets.vidrock_passphrase", "s3cret"), ShouldBeNil)

			value, err := GetSecret("secrets.vidrock_passphrase")
			So(err, ShouldBeNil)
			So(value, ShouldEqual, "s3cret")

			So(DeleteSecret("secrets.vidrock_passphrase"), ShouldBeNil)
			So(DeleteSecret("secrets.vidrock_passphrase"), ShouldBeNil)
		})
	})
}
