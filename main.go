package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/timini/wiggleroom-sub000/config"
	"github.com/timini/wiggleroom-sub000/debug"
	"github.com/timini/wiggleroom-sub000/midi"
	"github.com/timini/wiggleroom-sub000/sequencer"
	"github.com/timini/wiggleroom-sub000/theme"
	"github.com/timini/wiggleroom-sub000/tui"
)

func main() {
	if os.Getenv("EUCLOGIC_DEBUG") != "" {
		debug.Enable()
		defer debug.Disable()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config: %v\n", err)
		os.Exit(1)
	}

	// Theme: user palette if present, built-in ramp otherwise
	var palette *theme.Palette
	if dir, err := config.ConfigDir(); err == nil {
		palette = theme.LoadGPLOrDefault(filepath.Join(dir, "palette.gpl"))
	} else {
		palette = theme.Default()
	}
	th := theme.New(palette)

	// Engine
	core := sequencer.NewCore(cfg.Channels, cfg.Seed)
	out := midi.NewOut(cfg.MIDI.OutPort, cfg.MIDI.Channel, cfg.MIDI.Notes)
	defer out.Close()

	runner := sequencer.NewRunner(core, out)
	runner.SetTempo(cfg.UI.LastTempo)
	runner.SetSwing(cfg.UI.LastSwing)

	if err := sequencer.LoadState(runner); err != nil {
		debug.Log("state", "load failed: %v", err)
	}

	// Optional MIDI clock input
	var clockIn *midi.ClockIn
	if cfg.ClockSource == config.ClockMIDI && cfg.MIDI.InPort != "" {
		clockIn, err = midi.NewClockIn(cfg.MIDI.InPort, runner.ClockPulse, runner.HandleTransport)
		if err != nil {
			fmt.Printf("midi clock: %v\n", err)
			fmt.Println("falling back to internal clock")
		} else {
			runner.SetExternalClock(true)
			defer clockIn.Close()
		}
	}

	runner.Start()
	defer runner.Shutdown()

	m := tui.NewModel(runner, th)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Persist on clean exit
	if err := sequencer.SaveState(runner); err != nil {
		fmt.Printf("save state: %v\n", err)
	}
	cfg.UI.LastTempo = runner.Tempo()
	cfg.UI.LastSwing = runner.Swing()
	if err := cfg.Save(); err != nil {
		fmt.Printf("save config: %v\n", err)
	}
}
