package protocol

// Op identifies a gateway WebSocket frame.
type Op string

const (
	OpBroadcast Op = "broadcast"
	OpTrack     Op = "track"
	OpLeave     Op = "leave"
	OpPresence  Op = "presence"
	OpError     Op = "error"
)

type FrameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Frame struct {
	Op       Op          `json:"op"`
	Envelope *Envelope   `json:"envelope,omitempty"`
	Presence *Presence   `json:"presence,omitempty"`
	Members  []Presence  `json:"members,omitempty"`
	Left     []string    `json:"left,omitempty"`
	Error    *FrameError `json:"error,omitempty"`
}

func ErrorFrame(code, message string) Frame {
	return Frame{Op: OpError, Error: &FrameError{Code: code, Message: message}}
}

func PresenceFrame(s Snapshot) Frame {
	return Frame{Op: OpPresence, Members: s.Members, Left: s.Left}
}
