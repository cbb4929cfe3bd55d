package domain

// Event kinds the monitor knows by name.
const (
	// KindPullRequest is the kind whose events feed entity timelines by default.
	KindPullRequest = "PullRequestEvent"
	// KindWatch is a repository star.
	KindWatch = "WatchEvent"
	// KindIssues is an issue action.
	KindIssues = "IssuesEvent"
)

// KindSet is a set of event kinds.
type KindSet map[string]struct{}

// NewKindSet builds a set from a list, ignoring empty entries.
func NewKindSet(kinds []string) KindSet {
	set := make(KindSet, len(kinds))
	for _, k := range kinds {
		if k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

// Contains reports whether kind is in the set.
func (s KindSet) Contains(kind string) bool {
	_, ok := s[kind]
	return ok
}
