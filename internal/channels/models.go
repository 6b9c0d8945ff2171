// Package channels implements C10: the channel/member bag updated on
// every inbound message and join/leave notice, grounded on
// original_source/plugins/channels/{__init__,data_source}.py.
package channels

// Member is one known chat participant, grounded on data_source.py's
// Member model.
type Member struct {
	UserID    string
	AvatarURL string
}
