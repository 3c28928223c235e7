package model

// Signal is pushed to a user's open signal connections when server-side state
// they render may have changed. Clients respond by refetching the named scope
// and clearing any matching optimistic override.
type Signal struct {
	SignalType SignalType `json:"signalType"`
	EntryGuid  string     `json:"entryGuid,omitempty"`
	UserID     string     `json:"userId,omitempty"`
}

type SignalType string

const (
	SignalTypeFollowing  SignalType = "FOLLOWING"
	SignalTypeFriendship SignalType = "FRIENDSHIP"
	SignalTypeComments   SignalType = "COMMENTS"
	SignalTypeRetweets   SignalType = "RETWEETS"
)

var AllSignalType = []SignalType{
	SignalTypeFollowing,
	SignalTypeFriendship,
	SignalTypeComments,
	SignalTypeRetweets,
}

func (e SignalType) IsValid() bool {
	switch e {
	case SignalTypeFollowing, SignalTypeFriendship, SignalTypeComments, SignalTypeRetweets:
		return true
	}
	return false
}

func (e SignalType) String() string {
	return string(e)
}
