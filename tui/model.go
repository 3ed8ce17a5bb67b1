package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/timini/wiggleroom-sub000/sequencer"
	"github.com/timini/wiggleroom-sub000/theme"
	"github.com/timini/wiggleroom-sub000/widgets"
)

// tableWindow is how many truth table rows are visible at once; the
// window scrolls to keep the cursor row in view.
const tableWindow = 16

type Model struct {
	Runner *sequencer.Runner
	Theme  *theme.Theme

	quitting bool
	showHelp bool

	selLane  int
	selState int // truth table row cursor
	selBit   int // truth table column cursor
	preset   sequencer.Preset
}

type UpdateMsg struct{}

func NewModel(runner *sequencer.Runner, th *theme.Theme) Model {
	return Model{
		Runner: runner,
		Theme:  th,
	}
}

func ListenForUpdates(runner *sequencer.Runner) tea.Cmd {
	return func() tea.Msg {
		<-runner.UpdateChan
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Runner)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case UpdateMsg:
		return m, ListenForUpdates(m.Runner)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.Runner.Core().Channels()
	states := m.Runner.Core().Table().States()

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.Runner.Stop()
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp

	// Transport
	case "p":
		m.Runner.TogglePlay()
	case "x":
		m.Runner.ResetTransport()

	// Master clock
	case "+", "=":
		m.Runner.AdjustTempo(5)
	case "-", "_":
		m.Runner.AdjustTempo(-5)
	case ".":
		m.Runner.AdjustSpeed(1)
	case ",":
		m.Runner.AdjustSpeed(-1)
	case ">":
		m.Runner.AdjustSwing(1)
	case "<":
		m.Runner.AdjustSwing(-1)

	// Lane selection
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(msg.String()[0] - '1')
		if idx < n {
			m.selLane = idx
		}
	case "tab":
		m.selLane = (m.selLane + 1) % n

	// Selected lane parameters
	case "W":
		m.Runner.AdjustSteps(m.selLane, 1)
	case "w":
		m.Runner.AdjustSteps(m.selLane, -1)
	case "E":
		m.Runner.AdjustHits(m.selLane, 1)
	case "e":
		m.Runner.AdjustHits(m.selLane, -1)
	case "T":
		m.Runner.AdjustRotation(m.selLane, 1)
	case "t":
		m.Runner.AdjustRotation(m.selLane, -1)
	case "y":
		m.Runner.CycleQuant(m.selLane)
	case "A":
		m.Runner.AdjustProbA(m.selLane, 0.05)
	case "a":
		m.Runner.AdjustProbA(m.selLane, -0.05)
	case "B":
		m.Runner.AdjustProbB(m.selLane, 0.05)
	case "b":
		m.Runner.AdjustProbB(m.selLane, -0.05)
	case "g":
		m.Runner.ToggleRetrig(m.selLane)

	// Truth table navigation and editing
	case "j", "down":
		if m.selState < states-1 {
			m.selState++
		}
	case "k", "up":
		if m.selState > 0 {
			m.selState--
		}
	case "l", "right":
		if m.selBit < n-1 {
			m.selBit++
		}
	case "h", "left":
		if m.selBit > 0 {
			m.selBit--
		}
	case "enter", " ":
		m.Runner.ToggleBit(m.selState, m.selBit)

	case "r":
		m.Runner.Randomize()
	case "m":
		m.Runner.Mutate()
	case "u":
		m.Runner.Undo()
	case "U", "ctrl+r":
		m.Runner.Redo()

	case "P":
		presets := sequencer.Presets()
		m.preset = presets[(int(m.preset)+1)%len(presets)]
		m.Runner.LoadPreset(m.preset)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	snap := m.Runner.Snapshot()

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(m.header()))
	if m.Runner.ExternalClock() && !snap.Locked {
		warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())
		out.WriteString(warnStyle.Render("  waiting for clock"))
	}
	out.WriteString("\n")
	out.WriteString(m.gatesView(snap))
	out.WriteString("\n\n")
	out.WriteString(m.laneView(snap))
	out.WriteString("\n")
	out.WriteString(m.tableView(snap))
	out.WriteString("\n\n")

	if m.showHelp {
		out.WriteString(dimStyle.Render(m.helpView()))
	} else {
		out.WriteString(dimStyle.Render("1-9:lane  hjkl:table  space:toggle  p:play  r/m:rand/mutate  u/U:undo/redo  ?:help  q:quit"))
	}

	return out.String()
}

func (m Model) header() string {
	playState := "STOP"
	if m.Runner.Playing() {
		playState = "PLAY"
	}

	clockState := "int"
	if m.Runner.ExternalClock() {
		clockState = "midi"
	}

	return fmt.Sprintf("euclogic  %s  %3.0fbpm  swing:%2.0f%%  speed:%s  clk:%s  preset:%s",
		playState, m.Runner.Tempo(), m.Runner.Swing(),
		sequencer.SpeedLabels[m.Runner.SpeedIdx()], clockState, m.preset)
}

// gatesView renders one cell per lane colored by the current gate level,
// an at-a-glance output meter under the header.
func (m Model) gatesView(snap *sequencer.Snapshot) string {
	colors := make([][3]uint8, m.Runner.Core().Channels())
	for i := range colors {
		role := theme.RoleMuted
		if i < len(snap.Gates) && snap.Gates[i] {
			role = theme.RoleActive
		}
		colors[i] = [3]uint8(m.Theme.RGB(role))
	}
	return "out: " + widgets.RenderCellRow(colors)
}

// laneView renders one line per lane: parameters, then the pattern with
// playhead and gate state.
func (m Model) laneView(snap *sequencer.Snapshot) string {
	sym := m.Theme.Symbols
	activeStyle := lipgloss.NewStyle().Foreground(m.Theme.Active())
	cursorStyle := lipgloss.NewStyle().Foreground(m.Theme.Cursor())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	fgStyle := lipgloss.NewStyle().Foreground(m.Theme.FG())

	var lines []string
	for i := 0; i < m.Runner.Core().Channels(); i++ {
		p := m.Runner.Lane(i)

		marker := " "
		if i == m.selLane {
			marker = ">"
		}

		retrig := " "
		if p.Retrig {
			retrig = "R"
		}

		gateRole := theme.RoleMuted
		if i < len(snap.Gates) && snap.Gates[i] {
			gateRole = theme.RoleActive
		}
		gate := widgets.RenderCell([3]uint8(m.Theme.RGB(gateRole)))

		params := fmt.Sprintf("%s%d %2d/%-2d r%-2d %s pA:%.2f pB:%.2f %s",
			marker, i+1, p.Hits, p.Steps, p.Rotation,
			sequencer.QuantLabels[p.QuantIdx], p.ProbA, p.ProbB, retrig)

		var pat strings.Builder
		if i < len(snap.Patterns) {
			for s, hit := range snap.Patterns[i] {
				at := s == snap.Cursors[i]
				switch {
				case at && hit:
					pat.WriteString(cursorStyle.Render(string(sym.CursorActive)))
				case at:
					pat.WriteString(cursorStyle.Render(string(sym.CursorEmpty)))
				case hit:
					pat.WriteString(activeStyle.Render(string(sym.StepActive)))
				default:
					pat.WriteString(dimStyle.Render(string(sym.StepEmpty)))
				}
			}
		}

		lines = append(lines, fgStyle.Render(params)+"  "+pat.String()+" "+gate)
	}
	return strings.Join(lines, "\n")
}

// tableView renders a scrolling window of truth table rows. The active
// input row is highlighted so the logic can be watched live.
func (m Model) tableView(snap *sequencer.Snapshot) string {
	n := m.Runner.Core().Channels()
	states := len(snap.Mapping)
	sym := m.Theme.Symbols

	activeStyle := lipgloss.NewStyle().Foreground(m.Theme.Success())
	cursorStyle := lipgloss.NewStyle().Foreground(m.Theme.Cursor())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	fgStyle := lipgloss.NewStyle().Foreground(m.Theme.FG())

	offset := m.selState - tableWindow/2
	if offset > states-tableWindow {
		offset = states - tableWindow
	}
	if offset < 0 {
		offset = 0
	}
	end := offset + tableWindow
	if end > states {
		end = states
	}

	var lines []string
	lines = append(lines, dimStyle.Render(fmt.Sprintf("  in %*s out", n, "")))
	for row := offset; row < end; row++ {
		rowStyle := fgStyle
		prefix := "  "
		if row == int(snap.InputState) {
			rowStyle = activeStyle
			prefix = " *"
		}

		var in strings.Builder
		for b := n - 1; b >= 0; b-- {
			if row>>b&1 != 0 {
				in.WriteRune('1')
			} else {
				in.WriteRune('0')
			}
		}

		var outBits strings.Builder
		mask := snap.Mapping[row]
		for b := n - 1; b >= 0; b-- {
			cell := string(sym.Empty)
			if mask>>b&1 != 0 {
				cell = string(sym.Solid)
			}
			if row == m.selState && b == m.selBit {
				outBits.WriteString(cursorStyle.Render(cell))
			} else {
				outBits.WriteString(rowStyle.Render(cell))
			}
		}

		lines = append(lines, rowStyle.Render(prefix+in.String()+" ")+outBits.String())
	}
	if states > tableWindow {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("  %d-%d of %d", offset, end-1, states)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) helpView() string {
	return widgets.RenderKeyHelp([]widgets.KeySection{
		{Title: "Transport", Keys: []widgets.KeyBinding{
			{Key: "p", Desc: "play/stop"},
			{Key: "x", Desc: "reset"},
			{Key: "+/-", Desc: "tempo"},
			{Key: ",/.", Desc: "speed ratio"},
			{Key: "</>", Desc: "swing"},
		}},
		{Title: "Lane (select 1-9, tab)", Keys: []widgets.KeyBinding{
			{Key: "w/W", Desc: "steps"},
			{Key: "e/E", Desc: "hits"},
			{Key: "t/T", Desc: "rotation"},
			{Key: "y", Desc: "clock division"},
			{Key: "a/A b/B", Desc: "probability pre/post"},
			{Key: "g", Desc: "retrigger"},
		}},
		{Title: "Truth table", Keys: []widgets.KeyBinding{
			{Key: "hjkl", Desc: "move cursor"},
			{Key: "space", Desc: "toggle bit"},
			{Key: "r", Desc: "randomize"},
			{Key: "m", Desc: "mutate"},
			{Key: "u/U", Desc: "undo/redo"},
			{Key: "P", Desc: "next preset"},
		}},
	}) + "\n\nLegend\n" + strings.Join([]string{
		widgets.RenderLegendItem([3]uint8(m.Theme.RGB(theme.RoleActive)), "gate", "lane output high"),
		widgets.RenderLegendItem([3]uint8(m.Theme.RGB(theme.RoleMuted)), "rest", "lane output low"),
		widgets.RenderLegendItem([3]uint8(m.Theme.RGB(theme.RoleCursor)), "cursor", "table edit position"),
	}, "\n")
}
