package main

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"hamlet/pkg/sim"
	"hamlet/pkg/storage"
	"hamlet/pkg/world"
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	engine          *sim.Engine
	store           storage.Storage
	solverAvailable bool

	feedViewport  viewport.Model
	metaViewport  viewport.Model
	spinner       spinner.Model
	ready         bool
	width         int
	height        int
	err           error
	loading       bool
	notice        string
	reloadPending bool

	// Active simulation state
	world      *world.World
	characters int
	result     *sim.StepResult

	// World selection state
	showWorldModal bool
	worlds         []*world.World
	selectedWorld  int
	loadingWorlds  bool

	// Quit confirmation state
	showQuitModal bool
}

var (
	feedPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	timestepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narrativeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(engine *sim.Engine, store storage.Storage, solverAvailable bool) ConsoleUI {
	feedVp := viewport.New(50, 20)
	metaVp := viewport.New(20, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = loadingStyle

	return ConsoleUI{
		engine:          engine,
		store:           store,
		solverAvailable: solverAvailable,
		feedViewport:    feedVp,
		metaViewport:    metaVp,
		spinner:         sp,
		showWorldModal:  true,
		loadingWorlds:   true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(loadWorlds(m.store), m.spinner.Tick)
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle quit modal first: it overlays everything.
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	if m.showWorldModal {
		return m.updateWorldModal(msg)
	}

	var vpCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		if !m.ready {
			m.ready = true
		}
		m.writeFeedContent()
		m.metaViewport.SetContent(m.writeMetadata())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		}
		switch msg.String() {
		case "q":
			m.showQuitModal = true
			return m, nil
		case "s", " ":
			if m.loading || m.world == nil {
				return m, nil
			}
			m.loading = true
			m.notice = ""
			m.writeFeedContent()
			return m, tea.Batch(stepSimulation(m.engine, m.world), m.spinner.Tick)
		case "y":
			m.notice = m.copyLastNarrative()
			return m, nil
		}

	case stepDoneMsg:
		m.loading = false
		m.result = msg.result
		if !msg.result.Success {
			m.err = fmt.Errorf("%s", msg.result.Message)
		} else {
			m.err = nil
		}
		if m.reloadPending {
			m.reloadPending = false
			m.engine.Reset()
			m.notice = "authored files changed; next step reloads"
		}
		m.writeFeedContent()
		m.metaViewport.SetContent(m.writeMetadata())
		m.feedViewport.GotoBottom()

	case dataChangedMsg:
		// A step in flight still uses the old rules; reset afterwards.
		if m.loading {
			m.reloadPending = true
			return m, nil
		}
		m.engine.Reset()
		m.notice = "authored files changed; next step reloads"

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.writeFeedContent()
			return m, cmd
		}
	}

	m.feedViewport, vpCmd = m.feedViewport.Update(msg)
	return m, vpCmd
}

// layout recomputes panel dimensions from the window size.
func (m *ConsoleUI) layout() {
	feedWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - feedWidth - 6

	m.feedViewport.Width = feedWidth - 2
	m.feedViewport.Height = m.height - 6
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
}

// copyLastNarrative puts the most recent narrative on the system
// clipboard and returns the status-line notice to show for it.
func (m *ConsoleUI) copyLastNarrative() string {
	if m.result == nil || len(m.result.Narratives) == 0 {
		return "nothing to copy yet"
	}
	last := m.result.Narratives[len(m.result.Narratives)-1]
	if err := clipboard.WriteAll(last); err != nil {
		return "clipboard unavailable"
	}
	return "narrative copied"
}

// writeFeedContent rebuilds the narrative feed for the current viewport
// width: every event so far, grouped by timestep, narratives highlighted.
func (m *ConsoleUI) writeFeedContent() {
	feedWidth := m.feedViewport.Width - 6
	if feedWidth < 12 {
		feedWidth = 12
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("HAMLET") + "\n\n")
	if m.world != nil {
		content.WriteString(fmt.Sprintf("Simulating %s. Press s to advance a timestep.\n\n", m.world.Name))
	}
	content.WriteString(separatorStyle.Render(strings.Repeat("─", feedWidth)) + "\n")

	if m.result == nil || len(m.result.Events) == 0 {
		content.WriteString("\nNo events yet. Each step runs every rule against the town.\n")
	} else {
		timestep := -1
		for _, ev := range m.result.Events {
			if ev.Timestep != timestep {
				timestep = ev.Timestep
				content.WriteString("\n" + timestepStyle.Render(fmt.Sprintf("· timestep %d", timestep)) + "\n\n")
			}
			if ev.Type == sim.EventNarrative {
				content.WriteString(narrativeStyle.Render(wordwrap.String(ev.Description, feedWidth)) + "\n\n")
			} else {
				line := fmt.Sprintf("[%s] %s", ev.Type, ev.Description)
				content.WriteString(eventStyle.Render(wordwrap.String(line, feedWidth)) + "\n\n")
			}
		}
	}

	if m.err != nil {
		content.WriteString(errorStyle.Render(wordwrap.String("Error: "+m.err.Error(), feedWidth)) + "\n\n")
	}
	if m.loading {
		content.WriteString(m.spinner.View() + loadingStyle.Render(" running rules...") + "\n")
	}

	m.feedViewport.SetContent(content.String())
	if m.loading {
		m.feedViewport.GotoBottom()
	}
}

func (m *ConsoleUI) writeMetadata() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("SIMULATION") + "\n\n")

	if m.world != nil {
		content.WriteString("World:\n")
		content.WriteString(m.world.Name + "\n")
		content.WriteString(promptStyle.Render(m.world.ID.String()[:8]+"...") + "\n\n")
	}

	timestep := 0
	rulesFired := 0
	truths := 0
	narratives := 0
	if m.result != nil {
		timestep = m.result.Timestep
		rulesFired = len(m.result.RulesExecuted)
		truths = len(m.result.TruthIDs)
		narratives = len(m.result.Narratives)
	}
	content.WriteString(fmt.Sprintf("Timestep: %d\n", timestep))
	content.WriteString(fmt.Sprintf("Characters: %d\n", m.characters))
	content.WriteString(fmt.Sprintf("Rules fired: %d\n", rulesFired))
	content.WriteString(fmt.Sprintf("Narratives: %d\n", narratives))
	content.WriteString(fmt.Sprintf("Truths: %d\n\n", truths))

	content.WriteString("Solver:\n")
	if m.solverAvailable {
		content.WriteString("available\n\n")
	} else {
		content.WriteString(promptStyle.Render("not installed") + "\n\n")
	}

	content.WriteString("Keys:\n")
	content.WriteString("• s: Step\n")
	content.WriteString("• y: Copy last narrative\n")
	content.WriteString("• ↑/↓: Scroll\n")
	content.WriteString("• q: Quit\n")

	return content.String()
}

func (m ConsoleUI) updateWorldModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case worldsLoadedMsg:
		m.loadingWorlds = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.worlds = msg.worlds
		}

	case simReadyMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.world = msg.world
		m.characters = msg.characters
		m.err = nil
		m.showWorldModal = false
		if m.width > 0 && m.height > 0 {
			m.layout()
			m.ready = true
		}
		m.writeFeedContent()
		m.metaViewport.SetContent(m.writeMetadata())
		return m, nil

	case spinner.TickMsg:
		if m.loadingWorlds || m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selectedWorld > 0 {
				m.selectedWorld--
			}
		case tea.KeyDown:
			if m.selectedWorld < len(m.worlds)-1 {
				m.selectedWorld++
			}
		case tea.KeyEnter:
			if m.loading || m.loadingWorlds {
				return m, nil
			}
			if len(m.worlds) > 0 {
				m.loading = true
				return m, tea.Batch(initSimulation(m.engine, m.worlds[m.selectedWorld]), m.spinner.Tick)
			}
		}
		if msg.String() == "q" {
			m.showQuitModal = true
			return m, nil
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y", "q":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave the town?"))
	content.WriteString("\n\n")
	content.WriteString("The simulation state stays in Redis; stepping resumes where you left off.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to keep simulating"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderWorldModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingWorlds:
		content.WriteString(modalTitleStyle.Render("Loading Worlds..."))
		content.WriteString("\n\n")
		content.WriteString(m.spinner.View() + loadingStyle.Render(" Reading seeded worlds from storage..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("%v", m.err)))
		content.WriteString("\n\n")
		content.WriteString(promptStyle.Render("Press Ctrl+C to exit"))
	case len(m.worlds) == 0:
		content.WriteString(modalTitleStyle.Render("No Worlds Found"))
		content.WriteString("\n\n")
		content.WriteString("Seed one first:\n\n")
		content.WriteString(eventStyle.Render("  hamlet seed data/worlds/thornbury.json"))
		content.WriteString("\n\n")
		content.WriteString(promptStyle.Render("Press Ctrl+C to exit"))
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Waking the Town..."))
		content.WriteString("\n\n")
		content.WriteString(m.spinner.View() + loadingStyle.Render(" Projecting the world into its knowledge base..."))
	default:
		content.WriteString(modalTitleStyle.Render("Select a World"))
		content.WriteString("\n\n")
		for i, w := range m.worlds {
			if i == m.selectedWorld {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", w.Name)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", w.Name)))
			}
			content.WriteString("\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if m.showWorldModal {
		return m.renderWorldModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	feedWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - feedWidth - 6

	status := promptStyle.Render("s: step  y: copy  q: quit")
	if m.loading {
		status = m.spinner.View() + loadingStyle.Render(" stepping...")
	} else if m.notice != "" {
		status = loadingStyle.Render(m.notice)
	}

	feedPanel := feedPanelStyle.Width(feedWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.feedViewport.View(),
			"", // Add empty line for spacing
			separatorStyle.Render(strings.Repeat("─", feedWidth-4)),
			status,
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, feedPanel, metaPanel)
}
