// Package version reports the build version and checks for newer releases.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

type semver struct {
	parts [3]int
	pre   string
}

func parseSemver(s string) (semver, error) {
	var v semver

	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s, v.pre = s[:i], s[i+1:]
	}

	fields := strings.Split(s, ".")
	if len(fields) < 2 || len(fields) > 3 {
		return v, fmt.Errorf("invalid version %q", s)
	}

	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return v, fmt.Errorf("invalid version %q", s)
		}
		v.parts[i] = n
	}

	return v, nil
}

// Compare returns 1 if a is newer than b, -1 if older and 0 if equal.
// A missing patch component counts as zero and a prerelease sorts before
// its release.
func Compare(a, b string) (int, error) {
	av, err := parseSemver(a)
	if err != nil {
		return 0, err
	}

	bv, err := parseSemver(b)
	if err != nil {
		return 0, err
	}

	for i := range av.parts {
		switch {
		case av.parts[i] > bv.parts[i]:
			return 1, nil
		case av.parts[i] < bv.parts[i]:
			return -1, nil
		}
	}

	switch {
	case av.pre == bv.pre:
		return 0, nil
	case av.pre == "":
		return 1, nil
	case bv.pre == "":
		return -1, nil
	}
	return strings.Compare(av.pre, bv.pre), nil
}
