package data

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Profile selects how strictly a handwritten time must be punctuated.
type Profile string

const (
	// ProfilePermissive accepts ':', '.', '-' or ' ' between hour and
	// minute, or nothing at all, so "1437" reads as 14:37.
	ProfilePermissive Profile = "permissive"
	// ProfileStrict requires a colon.
	ProfileStrict Profile = "strict"
)

const (
	permissiveAllowlist = "0123456789:.- "
	strictAllowlist     = "0123456789:"
)

// The 2[0-3] branch comes first so "2359" is read as 23:59 and not 02:35.
var (
	permissiveTimeRegex = regexp.MustCompile(`(2[0-3]|[01]?\d)[:.\- ]?([0-5]\d)`)
	strictTimeRegex     = regexp.MustCompile(`(2[0-3]|[01]?\d):([0-5]\d)`)
)

func ParseProfile(s string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(s))) {
	case ProfilePermissive, "":
		return ProfilePermissive, nil
	case ProfileStrict:
		return ProfileStrict, nil
	default:
		return "", fmt.Errorf("unknown time profile: %s", s)
	}
}

// Allowlist is the character set handed to the recognition engine.
func (p Profile) Allowlist() string {
	if p == ProfileStrict {
		return strictAllowlist
	}
	return permissiveAllowlist
}

type TimeParser struct {
	profile Profile
	pattern *regexp.Regexp
}

func NewTimeParser(profile Profile) *TimeParser {
	pattern := permissiveTimeRegex
	if profile == ProfileStrict {
		pattern = strictTimeRegex
	}
	return &TimeParser{profile: profile, pattern: pattern}
}

func (tp *TimeParser) Profile() Profile {
	return tp.profile
}

// Parse returns the first time-like match in text. Later candidates are
// ignored; a false result means no time was found.
func (tp *TimeParser) Parse(text string) (TimeValue, bool) {
	m := tp.pattern.FindStringSubmatch(text)
	if m == nil {
		return TimeValue{}, false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return TimeValue{}, false
	}
	minute, err := strconv.Atoi(m[2])
	if err != nil {
		return TimeValue{}, false
	}
	tv, err := NewTimeValue(hour, minute)
	if err != nil {
		return TimeValue{}, false
	}
	return tv, true
}

// Filter keeps the allowlisted characters of text and collapses whitespace.
func (tp *TimeParser) Filter(text string) string {
	allow := tp.profile.Allowlist()
	kept := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if strings.ContainsRune(allow, r) {
			return r
		}
		return -1
	}, text)
	return strings.Join(strings.Fields(kept), " ")
}
