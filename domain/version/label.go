package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Label returns the label for version number n: "1.<n-1>".
// Labels are strictly increasing in n when compared with CompareLabels.
func Label(n int) string {
	if n < 1 {
		n = 1
	}
	return fmt.Sprintf("1.%d", n-1)
}

// ParseLabel splits a "major.minor" label into its integer parts.
func ParseLabel(label string) (major, minor int, err error) {
	head, tail, ok := strings.Cut(strings.TrimSpace(label), ".")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	major, err = strconv.Atoi(head)
	if err != nil || major < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	minor, err = strconv.Atoi(tail)
	if err != nil || minor < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return major, minor, nil
}

// CompareLabels returns -1, 0 or +1 as a sorts before, equal to or after b.
// "1.10" sorts after "1.9".
func CompareLabels(a, b string) (int, error) {
	amaj, amin, err := ParseLabel(a)
	if err != nil {
		return 0, err
	}
	bmaj, bmin, err := ParseLabel(b)
	if err != nil {
		return 0, err
	}
	switch {
	case amaj != bmaj:
		return cmpInt(amaj, bmaj), nil
	default:
		return cmpInt(amin, bmin), nil
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
