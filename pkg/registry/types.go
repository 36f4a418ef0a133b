package registry

import (
	"fmt"
	"strings"
	"time"
)

// Plugin is one registry entry. Plugins are addressed by their stable ID;
// remote resources are derived from the "owner/name" repository reference
// plus a branch.
type Plugin struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Repo        string `json:"repo"`             // "owner/name"
	Branch      string `json:"branch,omitempty"` // defaults to "master" when empty
}

// Valid reports whether the entry carries the fields every consumer relies
// on. Entries failing this check are dropped at fetch time and never cached.
func (p Plugin) Valid() bool {
	if p.ID == "" || p.Repo == "" {
		return false
	}
	_, _, err := SplitRepo(p.Repo)
	return err == nil
}

// SplitRepo splits an "owner/name" repository reference. A malformed
// reference is an input error: it fails fast with no retry and no cache
// mutation.
func SplitRepo(repo string) (owner, name string, err error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed repository reference %q: want owner/name", repo)
	}
	return parts[0], parts[1], nil
}

// PluginStats is the statistics blob entry for one plugin. The blob also
// carries per-version download counts under dynamic keys; those are not
// needed here and are ignored during decoding.
type PluginStats struct {
	Downloads int   `json:"downloads"`
	Updated   int64 `json:"updated"` // unix milliseconds of the latest release
}

// UpdatedTime converts the raw millisecond timestamp. ok is false when the
// blob carries no usable date for this plugin.
func (s PluginStats) UpdatedTime() (time.Time, bool) {
	if s.Updated <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(s.Updated), true
}

// Stats maps plugin ID to its statistics blob entry.
type Stats map[string]PluginStats

// ReleaseInfo is the resolved "latest release" information for a plugin.
type ReleaseInfo struct {
	Date      time.Time `json:"date"`
	Downloads int       `json:"downloads"`
}
