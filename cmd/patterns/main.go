package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/timini/wiggleroom-sub000/midi"
	"github.com/timini/wiggleroom-sub000/sequencer"
)

// patterns prints Euclidean rhythms and truth table presets to stdout,
// and lists MIDI ports. Handy for checking what the engine will do
// before wiring up hardware.
func main() {
	steps := flag.Int("steps", 16, "pattern length (1-64)")
	hits := flag.Int("hits", -1, "hit count, -1 for all values")
	rotation := flag.Int("rotation", 0, "pattern rotation")
	preset := flag.String("preset", "", "print a truth table preset (PASS, OR, AND, ...)")
	channels := flag.Int("channels", 4, "channel count for -preset")
	ports := flag.Bool("ports", false, "list MIDI ports and exit")
	flag.Parse()

	if *ports {
		listPorts()
		return
	}

	if *preset != "" {
		printPreset(*preset, *channels)
		return
	}

	if *hits >= 0 {
		printPattern(*steps, *hits, *rotation)
		return
	}
	for h := 0; h <= *steps; h++ {
		printPattern(*steps, h, *rotation)
	}
}

func printPattern(steps, hits, rotation int) {
	e := sequencer.NewEngine()
	e.Configure(steps, hits, rotation)
	var out strings.Builder
	for i := 0; i < e.Steps(); i++ {
		if e.Hit(i) {
			out.WriteRune('x')
		} else {
			out.WriteRune('.')
		}
	}
	fmt.Printf("E(%2d,%2d) %s\n", e.Hits(), e.Steps(), out.String())
}

func printPreset(name string, channels int) {
	var preset sequencer.Preset
	found := false
	for _, p := range sequencer.Presets() {
		if strings.EqualFold(p.String(), name) {
			preset = p
			found = true
			break
		}
	}
	if !found {
		fmt.Printf("unknown preset %q\n", name)
		os.Exit(1)
	}

	t := sequencer.NewTruthTable(channels, 0)
	t.LoadPreset(preset)
	fmt.Printf("%s, %d channels:\n", preset, t.Channels())
	for i := 0; i < t.States(); i++ {
		fmt.Printf("  %0*b -> %0*b\n", t.Channels(), i, t.Channels(), t.Mapping(i))
	}
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	for _, name := range midi.InPorts() {
		fmt.Println("  " + name)
	}
	fmt.Println("=== MIDI Output Ports ===")
	for _, name := range midi.OutPorts() {
		fmt.Println("  " + name)
	}
}
