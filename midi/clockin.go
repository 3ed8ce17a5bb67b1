package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// PulsesPerQuarter is the MIDI realtime clock rate.
const PulsesPerQuarter = 24

// ClockIn listens on a MIDI input port for realtime clock and transport
// messages. Timing pulses arrive at 24 PPQN; ClockIn divides them down
// to quarter-note edges before invoking OnEdge, which is what the
// scheduler expects to measure its period from.
type ClockIn struct {
	inPort   drivers.In
	stopFunc func()

	mu     sync.Mutex
	pulses int

	// OnEdge fires once per quarter note, from the driver goroutine.
	OnEdge func()
	// OnTransport fires on start/continue/stop, from the driver goroutine.
	OnTransport func(TransportEvent)
}

// NewClockIn opens the named input port and starts listening. Pass the
// callbacks before any clock arrives; they are read without locking.
func NewClockIn(portName string, onEdge func(), onTransport func(TransportEvent)) (*ClockIn, error) {
	var inPort drivers.In
	for _, p := range gomidi.GetInPorts() {
		if p.String() == portName {
			inPort = p
			break
		}
	}
	if inPort == nil {
		return nil, fmt.Errorf("midi in port %q not found", portName)
	}

	c := &ClockIn{
		inPort:      inPort,
		OnEdge:      onEdge,
		OnTransport: onTransport,
	}

	// UseTimeCode: the driver filters timing messages unless asked
	stop, err := gomidi.ListenTo(inPort, c.handle, gomidi.UseTimeCode())
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	c.stopFunc = stop
	return c, nil
}

func (c *ClockIn) handle(msg gomidi.Message, timestampms int32) {
	switch {
	case msg.Is(gomidi.TimingClockMsg):
		c.mu.Lock()
		fire := c.pulses%PulsesPerQuarter == 0
		c.pulses++
		c.mu.Unlock()
		if fire && c.OnEdge != nil {
			c.OnEdge()
		}
	case msg.Is(gomidi.StartMsg):
		c.mu.Lock()
		c.pulses = 0
		c.mu.Unlock()
		if c.OnTransport != nil {
			c.OnTransport(TransportEvent{Type: TransportStart})
		}
	case msg.Is(gomidi.ContinueMsg):
		if c.OnTransport != nil {
			c.OnTransport(TransportEvent{Type: TransportContinue})
		}
	case msg.Is(gomidi.StopMsg):
		if c.OnTransport != nil {
			c.OnTransport(TransportEvent{Type: TransportStop})
		}
	}
}

// Close stops listening on the input port.
func (c *ClockIn) Close() error {
	if c.stopFunc != nil {
		c.stopFunc()
		c.stopFunc = nil
	}
	return nil
}

// InPorts lists the names of the available MIDI input ports.
func InPorts() []string {
	ports := gomidi.GetInPorts()
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.String())
	}
	return names
}
