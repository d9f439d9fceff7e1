package version

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/metafates/gache"
	"github.com/vidsan-cli/vidsan/filesystem"
	"github.com/vidsan-cli/vidsan/network"
	"github.com/vidsan-cli/vidsan/where"
)

// ReleasesURL is the GitHub API endpoint of the latest release.
const ReleasesURL = "https://api.github.com/repos/vidsan-cli/vidsan/releases/latest"

var (
	cacherOnce    sync.Once
	versionCacher *gache.Cache[string]
)

func cacher() *gache.Cache[string] {
	cacherOnce.Do(func() {
		versionCacher = gache.New[string](&gache.Options{
			Path:       filepath.Join(where.Cache(), "version.json"),
			Lifetime:   time.Hour * 24 * 2,
			FileSystem: filesystem.Gache(),
		})
	})
	return versionCacher
}

// Latest retrieves the most recent stable application version identifier from the remote update registry.
// Results are cached for two days to stay under the API rate limit.
func Latest(ctx context.Context, client *network.Client) (string, error) {
	ver, expired, err := cacher().Get()
	if err != nil {
		return "", err
	}

	if !expired && ver != "" {
		return ver, nil
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := client.GetJSON(ctx, ReleasesURL, &release); err != nil {
		return "", err
	}

	if release.TagName == "" {
		return "", errors.New("empty tag name")
	}

	ver = strings.TrimPrefix(release.TagName, "v")
	_ = cacher().Set(ver)
	return ver, nil
}
