package domain

// BuildEventKind discriminates the events streamed by the build engine
type BuildEventKind int

const (
	BuildEventUnknown BuildEventKind = iota
	BuildEventProgress
	BuildEventError
)

func (k BuildEventKind) String() string {
	switch k {
	case BuildEventProgress:
		return "progress"
	case BuildEventError:
		return "error"
	default:
		return "unknown"
	}
}

// BuildEvent is a single message from an image build stream.
// Raw keeps the undecoded payload so unrecognized events can be logged verbatim.
type BuildEvent struct {
	Kind    BuildEventKind
	Message string
	Raw     string
}

func ProgressEvent(msg string) BuildEvent {
	return BuildEvent{Kind: BuildEventProgress, Message: msg, Raw: msg}
}

func ErrorEvent(msg string) BuildEvent {
	return BuildEvent{Kind: BuildEventError, Message: msg, Raw: msg}
}

func UnknownEvent(raw string) BuildEvent {
	return BuildEvent{Kind: BuildEventUnknown, Raw: raw}
}

// BuildResult summarizes a finished image build
type BuildResult struct {
	Image      string
	Log        []string
	Productive bool // at least one progress event was seen
}
