package stream

// EventKind classifies transport events fed into a Session.
type EventKind int

const (
	EventOpened EventKind = iota // transport is connected
	EventData                    // a data frame, possibly named
	EventEnd                     // the named "end" frame
	EventError                   // transport failure
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventData:
		return "data"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a single input to the session state machine.
type Event struct {
	Kind EventKind
	// Name is the frame's event name. Empty (or "message") for default
	// data frames.
	Name string
	Data string
	Err  error
}

// EndEventName is the frame name that signals successful completion.
const EndEventName = "end"

// isDefault reports whether a data frame carries an item record rather
// than some named side-channel event.
func (e Event) isDefault() bool {
	return e.Name == "" || e.Name == "message"
}
