// Package version orders package-manager version strings. Managers emit
// semantic versions, truncated versions ("1.0"), prerelease suffixes
// ("2.4.0-beta0"), and the literal "unknown", so the comparison is more
// tolerant than strict semver.
package version

import (
	"strconv"
	"strings"
)

// Unknown is what parsers report when a manager cannot determine the
// installed version.
const Unknown = "unknown"

// IsNewer reports whether candidate denotes a strictly later release than
// current. An unknown current never blocks an update; an unknown candidate
// is never newer.
func IsNewer(current, candidate string) (newer bool) {
	current = strings.TrimSpace(current)
	candidate = strings.TrimSpace(candidate)

	if strings.EqualFold(candidate, Unknown) {
		return false
	}
	if strings.EqualFold(current, Unknown) {
		return true
	}

	// Last-resort degraded mode: if segment comparison trips on anything
	// unexpected, fall back to plain string ordering.
	defer func() {
		if recover() != nil {
			newer = candidate > current
		}
	}()

	curBase, curPre := splitPrerelease(current)
	candBase, candPre := splitPrerelease(candidate)

	switch compareBase(curBase, candBase) {
	case -1:
		return true
	case 1:
		return false
	}

	// Equal base versions: a release beats its own prerelease.
	return curPre && !candPre
}

// splitPrerelease strips everything from the first '-' onward and reports
// whether a suffix was present.
func splitPrerelease(v string) (base string, hasSuffix bool) {
	if idx := strings.IndexByte(v, '-'); idx >= 0 {
		return v[:idx], true
	}
	return v, false
}

// compareBase compares dot-separated version bases segment by segment.
// Missing trailing segments and non-numeric segments count as 0.
func compareBase(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		av := segmentValue(as, i)
		bv := segmentValue(bs, i)
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

func segmentValue(segments []string, i int) int {
	if i >= len(segments) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(segments[i]))
	if err != nil {
		return 0
	}
	return n
}
