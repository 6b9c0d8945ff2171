// Package nickname implements the "setnick"/"getnick" profile feature
// (spec.md §6), grounded on
// original_source/plugins/nickname/{__init__,data_source}.py: a per-user
// display name, free on first set, 30 shards on every subsequent change,
// unique across all users.
package nickname

// Nickname is one user's chosen display name.
type Nickname struct {
	UserID   string
	Nickname string
}
