// Package util holds small helpers shared by the CLI and the extractors.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vidsan-cli/vidsan/filesystem"
	"golang.org/x/exp/constraints"
	"golang.org/x/term"
)

var (
	filenameInvalid  = regexp.MustCompile(`[\\/<>:;"'|?!*{}#%&^+,~\s]`)
	filenameRepeated = regexp.MustCompile(`__+`)
	filenameEdges    = regexp.MustCompile(`^[_\-.]+|[_\-.]+$`)
)

// SanitizeFilename turns s into a name safe on every filesystem.
func SanitizeFilename(s string) string {
	s = filenameInvalid.ReplaceAllString(s, "_")
	s = filenameRepeated.ReplaceAllString(s, "_")
	return filenameEdges.ReplaceAllString(s, "")
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// TerminalSize reports the dimensions of the terminal attached to stdout.
func TerminalSize() (width, height int, err error) {
	return term.GetSize(int(os.Stdout.Fd()))
}

// FileStem returns the base name of path without its extension.
func FileStem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// PrintErasable prints msg on the current line and returns a func that
// blanks it again.
func PrintErasable(msg string) (eraser func()) {
	fmt.Fprintf(os.Stdout, "\r%s", msg)
	return func() {
		fmt.Fprintf(os.Stdout, "\r%s\r", strings.Repeat(" ", utf8.RuneCountInString(msg)))
	}
}

// Ignore calls f and drops its error, for deferred Close calls.
func Ignore(f func() error) {
	_ = f()
}

// Max returns the largest of items, or the zero value when empty.
func Max[T constraints.Ordered](items ...T) (max T) {
	for i, item := range items {
		if i == 0 || item > max {
			max = item
		}
	}
	return
}

// Delete removes path, recursively when it is a directory.
func Delete(path string) error {
	fs := filesystem.API()
	stat, err := fs.Stat(path)
	if err != nil {
		return err
	}

	if stat.IsDir() {
		return fs.RemoveAll(path)
	}
	return fs.Remove(path)
}
