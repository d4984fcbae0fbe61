package stream

import "fmt"

// Status is the lifecycle state of a Session.
type Status int

const (
	Idle Status = iota
	Connecting
	Streaming
	Completed
	Failed
)

var statusNames = map[Status]string{
	Idle:       "idle",
	Connecting: "connecting",
	Streaming:  "streaming",
	Completed:  "completed",
	Failed:     "failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(data []byte) error {
	for k, v := range statusNames {
		if v == string(data) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", data)
}

// IsTerminal reports whether no further events can change the session.
func (s Status) IsTerminal() bool {
	return s == Completed || s == Failed
}
