package models

// Channel is one capturable source the local helper can stream.
type Channel struct {
	ID    string `json:"id"`
	Kind  string `json:"type"` // same kinds as RTStream
	Name  string `json:"name"`
	Store bool   `json:"store"` // persist the recording after capture stops
}

// ChannelList groups discovered channels by kind.
type ChannelList struct {
	Mics        []Channel `json:"mics"`
	Displays    []Channel `json:"displays"`
	SystemAudio []Channel `json:"system_audio"`
}

// Default returns the first channel of a group, or nil.
func Default(group []Channel) *Channel {
	if len(group) == 0 {
		return nil
	}
	return &group[0]
}

// All flattens the list in discovery order.
func (l ChannelList) All() []Channel {
	out := make([]Channel, 0, len(l.Mics)+len(l.Displays)+len(l.SystemAudio))
	out = append(out, l.Mics...)
	out = append(out, l.Displays...)
	out = append(out, l.SystemAudio...)
	return out
}
