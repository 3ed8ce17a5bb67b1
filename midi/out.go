package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver
)

// Out sends per-lane note events to MIDI output ports. Ports are opened
// lazily by name and cached, so hot-plugged devices connect on first use
// without a restart.
type Out struct {
	defaultPort string
	channel     uint8 // 0-15 wire channel
	notes       []uint8

	senders map[string]func(gomidi.Message) error
	mu      sync.RWMutex
}

// NewOut creates an output stage. channel is the 1-16 display channel;
// notes assigns a MIDI note per lane (missing lanes fall back to 36+lane).
func NewOut(defaultPort string, channel uint8, notes []uint8) *Out {
	if channel < 1 || channel > 16 {
		channel = 10
	}
	return &Out{
		defaultPort: defaultPort,
		channel:     channel - 1,
		notes:       notes,
		senders:     make(map[string]func(gomidi.Message) error),
	}
}

// OutPorts lists the names of the available MIDI output ports.
func OutPorts() []string {
	ports := gomidi.GetOutPorts()
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.String())
	}
	return names
}

// SetDefaultPort changes the port used by lane sends.
func (o *Out) SetDefaultPort(portName string) {
	o.mu.Lock()
	o.defaultPort = portName
	o.mu.Unlock()
}

// DefaultPort returns the current output port name.
func (o *Out) DefaultPort() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.defaultPort
}

// LaneNote returns the note number assigned to a lane.
func (o *Out) LaneNote(lane int) uint8 {
	if lane >= 0 && lane < len(o.notes) {
		return o.notes[lane]
	}
	return uint8(36 + lane)
}

// getSender returns a sender for the given port name, lazily opening it
func (o *Out) getSender(portName string) func(gomidi.Message) error {
	if portName == "" {
		return nil
	}

	o.mu.RLock()
	if sender, ok := o.senders[portName]; ok {
		o.mu.RUnlock()
		return sender
	}
	o.mu.RUnlock()

	o.mu.Lock()
	defer o.mu.Unlock()

	// Double-check after acquiring write lock
	if sender, ok := o.senders[portName]; ok {
		return sender
	}

	for _, port := range gomidi.GetOutPorts() {
		if port.String() == portName {
			sender, err := gomidi.SendTo(port)
			if err != nil {
				return nil
			}
			o.senders[portName] = sender
			return sender
		}
	}
	return nil
}

// NoteOn sends a gate-open for a lane. Silently drops when no port is
// configured or available, so the engine keeps running without hardware.
func (o *Out) NoteOn(lane int, velocity uint8) {
	sender := o.getSender(o.DefaultPort())
	if sender == nil {
		return
	}
	sender(gomidi.NoteOn(o.channel, o.LaneNote(lane), velocity))
}

// NoteOff sends a gate-close for a lane.
func (o *Out) NoteOff(lane int) {
	sender := o.getSender(o.DefaultPort())
	if sender == nil {
		return
	}
	sender(gomidi.NoteOff(o.channel, o.LaneNote(lane)))
}

// AllNotesOff silences every lane note. Called on stop and shutdown.
func (o *Out) AllNotesOff(lanes int) {
	sender := o.getSender(o.DefaultPort())
	if sender == nil {
		return
	}
	for i := 0; i < lanes; i++ {
		sender(gomidi.NoteOff(o.channel, o.LaneNote(i)))
	}
}

// Close drops all cached senders and closes the underlying driver.
func (o *Out) Close() error {
	o.mu.Lock()
	o.senders = make(map[string]func(gomidi.Message) error)
	o.mu.Unlock()
	gomidi.CloseDriver()
	return nil
}

// FindOutPort reports whether a port with the given name exists.
func FindOutPort(name string) error {
	for _, p := range gomidi.GetOutPorts() {
		if p.String() == name {
			return nil
		}
	}
	return fmt.Errorf("midi out port %q not found", name)
}
