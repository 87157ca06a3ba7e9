package docdb

// ChangeEvent notifies a subscriber that key was affected by a commit.
// Values are never embedded (spec.md §4.6: "subscribers re-fetch").
type ChangeEvent struct {
	Key string
}
