// Package topic defines the named channels used by the change bus.
//
// Topics use hierarchical dot notation, e.g. "engine.value.changed".
// Subscription patterns may use "*" to match exactly one segment:
// "engine.*.changed" matches "engine.value.changed" and
// "engine.memory.changed" but not "engine.changed".
package topic

import "strings"

// Topic identifies a category of state mutation on the change bus.
type Topic string

// Wildcard matches exactly one segment in a subscription pattern.
const Wildcard = "*"

// Separator is the character used to separate topic segments.
const Separator = "."

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// Base returns the last segment of the topic.
//
// Example: "engine.value.changed" -> "changed"
func (t Topic) Base() string {
	s := string(t)
	idx := strings.LastIndex(s, Separator)
	if idx < 0 {
		return s
	}
	return s[idx+1:]
}

// IsPattern returns true if the topic contains a wildcard segment.
func (t Topic) IsPattern() bool {
	for _, seg := range t.Segments() {
		if seg == Wildcard {
			return true
		}
	}
	return false
}

// IsValid returns true if the topic is well formed.
// A valid topic is non-empty, does not start or end with a separator,
// and contains no empty segments.
func (t Topic) IsValid() bool {
	s := string(t)
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, Separator) || strings.HasSuffix(s, Separator) {
		return false
	}
	return !strings.Contains(s, Separator+Separator)
}

// Matches returns true if this topic matches the given pattern.
// A pattern without wildcards matches only itself.
func (t Topic) Matches(pattern Topic) bool {
	if !pattern.IsPattern() {
		return t == pattern
	}

	ts := t.Segments()
	ps := pattern.Segments()
	if len(ts) != len(ps) {
		return false
	}
	for i, seg := range ps {
		if seg != Wildcard && seg != ts[i] {
			return false
		}
	}
	return true
}

// Join joins segments into a topic.
func Join(segments ...string) Topic {
	return Topic(strings.Join(segments, Separator))
}
