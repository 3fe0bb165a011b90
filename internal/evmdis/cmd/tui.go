package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"evmdis/internal/analysis"
	"evmdis/internal/config"
	"evmdis/internal/disasm"
	"evmdis/internal/evmdis/styles"
	"evmdis/internal/listing"
	"evmdis/internal/loader"
)

type viewMode int

const (
	viewListing viewMode = iota
	viewFindings
	viewSummary
)

type findingItem struct {
	index   int // instruction holding the finding
	finding analysis.Finding
}

func (i findingItem) Title() string {
	return fmt.Sprintf("%x  %s", i.finding.PC, i.finding.Message)
}

func (i findingItem) FilterValue() string {
	return string(i.finding.Kind) + " " + i.finding.Message
}

func (i findingItem) Description() string { return "" }

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(findingItem)
	if !ok {
		return
	}

	indicator := " "
	if index == m.Index() {
		indicator = ">"
	}
	kind := lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Render(fmt.Sprintf("%-9s", i.finding.Kind))
	fmt.Fprintf(w, " %s  %s  %s  %s",
		indicator,
		styles.Offset(index == m.Index()).Render(fmt.Sprintf("%06x", i.finding.PC)),
		kind,
		i.finding.Message)
}

type model struct {
	viewport    viewport.Model
	findingList list.Model
	summaryView viewport.Model
	spinner     spinner.Model
	mode        viewMode
	prog        *loader.Program
	chain       *analysis.DetectorChain
	cfg         config.Config
	stream      disasm.Stream
	findings    []analysis.Finding
	analyzing   bool
	color       bool
	width       int
	height      int
}

type analyzedMsg struct {
	stream   disasm.Stream
	findings []analysis.Finding
}

func analyzeCmd(prog *loader.Program, chain *analysis.DetectorChain, annotate bool) tea.Cmd {
	return func() tea.Msg {
		stream := disasm.Decode(prog.Code)
		var findings []analysis.Finding
		if annotate {
			findings = chain.Detect(analysis.Input{Code: prog.Code, Stream: stream}, nil)
		}
		return analyzedMsg{stream: stream, findings: findings}
	}
}

// NewModel returns the viewer for prog. Decoding starts on Init.
func NewModel(prog *loader.Program, chain *analysis.DetectorChain, cfg config.Config, color bool) model {
	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(24)

	findingList := list.New([]list.Item{}, itemDelegate{}, 80, 24)
	findingList.SetShowStatusBar(false)
	findingList.SetFilteringEnabled(true)
	findingList.Title = "Findings"
	findingList.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		MarginLeft(2)
	findingList.SetShowHelp(true)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	svp := viewport.New()
	svp.SetWidth(80)
	svp.SetHeight(24)

	m := model{
		viewport:    vp,
		findingList: findingList,
		summaryView: svp,
		spinner:     s,
		mode:        viewListing,
		prog:        prog,
		chain:       chain,
		cfg:         cfg,
		analyzing:   true,
		color:       color,
		width:       80,
		height:      24,
	}
	m.updateContent()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		analyzeCmd(m.prog, m.chain, m.cfg.Annotate),
		m.spinner.Tick,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case analyzedMsg:
		m.stream = msg.stream
		m.findings = msg.findings
		m.analyzing = false
		m.updateFindingList()
		m.updateContent()
		return m, nil

	case spinner.TickMsg:
		if !m.analyzing {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateContent()
		return m, cmd

	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			m.viewport.SetWidth(msg.Width)
			m.viewport.SetHeight(msg.Height - 2)
			m.findingList.SetWidth(msg.Width)
			m.findingList.SetHeight(msg.Height - 2)
			m.summaryView.SetWidth(msg.Width)
			m.summaryView.SetHeight(msg.Height - 2)
			m.updateContent()
		}

	case tea.KeyMsg:
		if m.mode == viewFindings && m.findingList.FilterState() == list.Filtering {
			// The list owns every key but quit while filtering
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "l":
			m.mode = viewListing
			return m, nil
		case "f":
			if len(m.findings) > 0 {
				m.mode = viewFindings
			}
			return m, nil
		case "s":
			m.mode = viewSummary
			return m, nil
		case "enter":
			if m.mode == viewFindings {
				if item, ok := m.findingList.SelectedItem().(findingItem); ok {
					m.mode = viewListing
					m.viewport.SetYOffset(item.index)
				}
			}
			return m, nil
		case "tab":
			m.mode = m.nextMode(1)
			return m, nil
		case "shift+tab":
			m.mode = m.nextMode(-1)
			return m, nil
		}
	}

	switch m.mode {
	case viewFindings:
		m.findingList, cmd = m.findingList.Update(msg)
	case viewSummary:
		m.summaryView, cmd = m.summaryView.Update(msg)
	default:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// nextMode cycles through the views, skipping findings when there are none.
func (m model) nextMode(step int) viewMode {
	mode := m.mode
	for range 3 {
		mode = (mode + viewMode(step) + 3) % 3
		if mode != viewFindings || len(m.findings) > 0 {
			return mode
		}
	}
	return m.mode
}

func (m model) View() string {
	var content string
	switch m.mode {
	case viewFindings:
		content = m.findingList.View()
	case viewSummary:
		content = m.summaryView.View()
	default:
		content = m.viewport.View()
	}

	var menu string
	switch m.mode {
	case viewFindings:
		menu = " Enter: jump to pc • L: listing • S: summary • Tab: cycle • Q: quit "
	case viewSummary:
		menu = " L: listing • F: findings • Tab: cycle • Q: quit "
	default:
		if len(m.findings) > 0 {
			menu = fmt.Sprintf(" %s • F: findings (%d) • S: summary • Tab: cycle • Q: quit ", m.prog.Name, len(m.findings))
		} else {
			menu = fmt.Sprintf(" %s • S: summary • Q: quit ", m.prog.Name)
		}
	}

	return content + "\n" + styles.Menu(m.width).Render(menu)
}

func (m *model) updateContent() {
	width := m.width
	if width == 0 {
		width = 80
	}

	if m.analyzing {
		m.viewport.SetContent(fmt.Sprintf("%s Decoding %d bytes...", m.spinner.View(), len(m.prog.Code)))
		m.summaryView.SetContent("")
		return
	}

	lines := listing.Lines(m.stream, m.findings, listing.Options{
		Offsets:  m.cfg.Offsets,
		Annotate: m.cfg.Annotate,
		Color:    m.color,
	})
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.summaryView.SetContent(strings.TrimSuffix(renderSummary(m.prog, m.stream, m.findings, width-2, m.color), "\n"))
}

func (m *model) updateFindingList() {
	items := make([]list.Item, 0, len(m.findings))
	for _, f := range m.findings {
		i, ok := m.stream.Find(f.PC)
		if !ok {
			i = len(m.stream) - 1
		}
		items = append(items, findingItem{index: i, finding: f})
	}
	m.findingList.SetItems(items)
}
