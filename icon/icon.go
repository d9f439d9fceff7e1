// Package icon renders the symbols printed next to CLI output.
//
// The same symbol has a representation per variant; icons.variant selects one.
package icon

import (
	"github.com/spf13/viper"
	"github.com/vidsan-cli/vidsan/key"
)

const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	kaomoji = "kaomoji"
	squares = "squares"
)

// AvailableVariants lists the accepted values of icons.variant.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, kaomoji, squares}
}

type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	kaomoji string
	squares string
}

func (d *iconDef) variant(name string) string {
	switch name {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case kaomoji:
		return d.kaomoji
	case squares:
		return d.squares
	default:
		return d.plain
	}
}

// Get renders i in the configured variant. Unknown variants and unknown
// icons fall back to plain text, so output never loses its marker.
func Get(i Icon) string {
	d, ok := icons[i]
	if !ok {
		return ""
	}
	return d.variant(viper.GetString(key.IconsVariant))
}
