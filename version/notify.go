package version

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/vidsan-cli/vidsan/color"
	"github.com/vidsan-cli/vidsan/constant"
	"github.com/vidsan-cli/vidsan/icon"
	"github.com/vidsan-cli/vidsan/key"
	"github.com/vidsan-cli/vidsan/network"
	"github.com/vidsan-cli/vidsan/style"
	"github.com/vidsan-cli/vidsan/util"
)

// Notify displays a terminal alert if a more recent stable application version is available.
func Notify() {
	if !viper.GetBool(key.CliVersionCheck) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	erase := util.PrintErasable(fmt.Sprintf("%s Checking if new version is available...", icon.Get(icon.Globe)))
	version, err := Latest(ctx, network.Default())
	erase()
	if err != nil {
		return
	}

	if comp, err := Compare(version, constant.Version); err != nil || comp <= 0 {
		return
	}

	fmt.Printf(`
%s New version is available %s %s
%s

`,
		style.Fg(color.Green)("▇▇▇"),
		style.Bold(version),
		style.Faint(fmt.Sprintf("(You're on %s)", constant.Version)),
		style.Faint("https://github.com/vidsan-cli/vidsan/releases/tag/v"+version),
	)
}
