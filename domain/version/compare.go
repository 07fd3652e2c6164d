package version

import (
	"strconv"
	"time"
)

// Difference labels reported by Compare.
const (
	DiffContent = "Content has changed"
	DiffSummary = "Change summary differs"
)

// History defaults for versions without an author or summary.
const (
	DefaultCreator = "system"
	DefaultSummary = "No summary provided"
)

// Comparison is the result of comparing two versions.
type Comparison struct {
	Version1    *PolicyVersion `json:"version1"`
	Version2    *PolicyVersion `json:"version2"`
	Differences []string       `json:"differences"`
}

// Compare reports coarse differences between two versions. Differences is
// empty, never nil, when nothing differs.
func Compare(v1, v2 *PolicyVersion) Comparison {
	diffs := []string{}
	if v1.Content != v2.Content {
		diffs = append(diffs, DiffContent)
	}
	if !equalOptional(v1.ChangeSummary, v2.ChangeSummary) {
		diffs = append(diffs, DiffSummary)
	}
	return Comparison{Version1: v1, Version2: v2, Differences: diffs}
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// HistoryEntry is one row of a policy's version history.
type HistoryEntry struct {
	VersionNumber int       `json:"version_number"`
	Version       string    `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	CreatedBy     string    `json:"created_by"`
	ChangeSummary string    `json:"change_summary"`
}

// History projects versions into history entries, keeping their order.
func History(versions []*PolicyVersion) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(versions))
	for _, v := range versions {
		e := HistoryEntry{
			VersionNumber: v.VersionNumber,
			Version:       v.Version,
			CreatedAt:     v.CreatedAt,
			CreatedBy:     DefaultCreator,
			ChangeSummary: DefaultSummary,
		}
		if v.CreatedBy != nil && *v.CreatedBy != "" {
			e.CreatedBy = *v.CreatedBy
		}
		if v.ChangeSummary != nil && *v.ChangeSummary != "" {
			e.ChangeSummary = *v.ChangeSummary
		}
		out = append(out, e)
	}
	return out
}

// RollbackSummary is the change summary recorded on a rollback version.
func RollbackSummary(target int) string {
	return "Rolled back to version " + strconv.Itoa(target)
}
