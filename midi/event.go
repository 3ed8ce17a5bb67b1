package midi

// TransportEventType identifies a MIDI realtime transport message.
type TransportEventType int

const (
	TransportStart TransportEventType = iota
	TransportContinue
	TransportStop
)

// TransportEvent is a realtime start/continue/stop from the clock input.
type TransportEvent struct {
	Type TransportEventType
}
