package scraper

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"path/filepath"

	"github.com/vidsan-cli/vidsan/filesystem"
	"github.com/vidsan-cli/vidsan/network"
)

// Install downloads the script at remoteURL into localPath. The file is
// only replaced when its content changed, and the swap goes through a
// temporary file so a half-written script is never loaded. It reports
// whether localPath was written.
func Install(ctx context.Context, client *network.Client, remoteURL, localPath string) (bool, error) {
	resp, err := client.Get(ctx, remoteURL)
	if err != nil {
		return false, err
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return false, fmt.Errorf("%s: empty script", remoteURL)
	}

	remoteHash := sha256.Sum256(resp.Body)

	fs := filesystem.API()
	if local, err := fs.ReadFile(localPath); err == nil && sha256.Sum256(local) == remoteHash {
		return false, nil
	}

	if err := fs.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return false, err
	}

	tmpPath := localPath + ".tmp"
	if err := fs.WriteFile(tmpPath, resp.Body, 0644); err != nil {
		return false, err
	}

	if err := fs.Rename(tmpPath, localPath); err != nil {
		_ = fs.Remove(tmpPath)
		return false, err
	}

	Forget(localPath)
	return true, nil
}
