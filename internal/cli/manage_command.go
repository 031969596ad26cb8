package cli

import (
	"errors"
	"flag"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"deobf-bot/internal/ledger"
)

type manageMode int

const (
	manageModeBrowse manageMode = iota
	manageModeCredit
)

type accountRow struct {
	ID        string
	Tokens    int
	LastDaily string
}

type manageModel struct {
	dataDir string
	rows    []accountRow
	enabled bool
	cursor  int
	width   int
	height  int
	mode    manageMode

	idInput     textinput.Model
	amountInput textinput.Model
	formIndex   int
	formError   string

	statusMessage string
	fatalErr      error
}

type accountsLoadedMsg struct {
	rows    []accountRow
	enabled bool
	err     error
}

type creditDoneMsg struct {
	message string
	err     error
}

type toggleDoneMsg struct {
	enabled bool
	err     error
}

var (
	manageTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	manageMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	manageErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	manageOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	managePanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	manageSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

func runManage(args []string) error {
	fs := flag.NewFlagSet("manage", flag.ContinueOnError)
	dataDir := fs.String("data-dir", defaultDataDir, "bot data directory")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !stdinIsTTY() {
		return errors.New("manage requires an interactive terminal (TTY)")
	}

	m := newManageModel(strings.TrimSpace(*dataDir))
	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "tty") {
			return errors.New("manage requires an interactive terminal (TTY)")
		}
		return err
	}
	if fm, ok := finalModel.(manageModel); ok {
		return fm.fatalErr
	}
	return nil
}

func newManageModel(dataDir string) manageModel {
	id := textinput.New()
	id.Placeholder = "discord user id"
	id.CharLimit = 32
	amount := textinput.New()
	amount.Placeholder = "tokens to add"
	amount.CharLimit = 6
	return manageModel{
		dataDir:     dataDir,
		mode:        manageModeBrowse,
		idInput:     id,
		amountInput: amount,
	}
}

func (m manageModel) Init() tea.Cmd {
	return loadAccountsCmd(m.dataDir)
}

func loadAccountsCmd(dataDir string) tea.Cmd {
	return func() tea.Msg {
		l, err := openLedger(dataDir)
		if err != nil {
			return accountsLoadedMsg{err: err}
		}
		accounts, err := l.Snapshot()
		if err != nil {
			return accountsLoadedMsg{err: err}
		}
		rows := make([]accountRow, 0, len(accounts))
		for id, rec := range accounts {
			last := "never"
			if rec.LastDaily != nil {
				last = rec.LastDaily.Format("2006-01-02")
			}
			rows = append(rows, accountRow{ID: id, Tokens: rec.Tokens, LastDaily: last})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
		return accountsLoadedMsg{rows: rows, enabled: l.Enabled()}
	}
}

func creditAccountCmd(dataDir, id string, amount int) tea.Cmd {
	return func() tea.Msg {
		l, err := openLedger(dataDir)
		if err != nil {
			return creditDoneMsg{err: err}
		}
		if err := l.Credit(id, amount); err != nil {
			return creditDoneMsg{err: err}
		}
		return creditDoneMsg{message: fmt.Sprintf("credited %d token(s) to %s", amount, id)}
	}
}

func toggleSystemCmd(dataDir string, enable bool) tea.Cmd {
	return func() tea.Msg {
		l, err := openLedger(dataDir)
		if err != nil {
			return toggleDoneMsg{err: err}
		}
		if err := l.SetEnabled(enable); err != nil && !errors.Is(err, ledger.ErrUnchanged) {
			return toggleDoneMsg{err: err}
		}
		return toggleDoneMsg{enabled: enable}
	}
}

func (m manageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case accountsLoadedMsg:
		if msg.err != nil {
			m.fatalErr = msg.err
			return m, tea.Quit
		}
		m.rows = msg.rows
		m.enabled = msg.enabled
		if m.cursor >= len(m.rows) {
			m.cursor = len(m.rows) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil
	case creditDoneMsg:
		if msg.err != nil {
			m.formError = msg.err.Error()
			return m, nil
		}
		m.mode = manageModeBrowse
		m.statusMessage = msg.message
		return m, loadAccountsCmd(m.dataDir)
	case toggleDoneMsg:
		if msg.err != nil {
			m.statusMessage = "error: " + msg.err.Error()
			return m, nil
		}
		m.enabled = msg.enabled
		m.statusMessage = "token system " + enabledWord(msg.enabled)
		return m, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.mode == manageModeCredit {
		return m.updateCredit(keyMsg)
	}
	return m.updateBrowse(keyMsg)
}

func (m manageModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "r":
		return m, loadAccountsCmd(m.dataDir)
	case "t":
		return m, toggleSystemCmd(m.dataDir, !m.enabled)
	case "enter", "e":
		if len(m.rows) == 0 {
			m.statusMessage = "no accounts yet, press n to credit a new one"
			return m, nil
		}
		return m.openCreditForm(m.rows[m.cursor].ID), nil
	case "n":
		return m.openCreditForm(""), nil
	}
	return m, nil
}

func (m manageModel) openCreditForm(id string) manageModel {
	m.mode = manageModeCredit
	m.formError = ""
	m.statusMessage = ""
	m.idInput.SetValue(id)
	m.amountInput.SetValue("")
	if id == "" {
		m.formIndex = 0
		m.idInput.Focus()
		m.amountInput.Blur()
	} else {
		m.formIndex = 1
		m.idInput.Blur()
		m.amountInput.Focus()
	}
	return m
}

func (m manageModel) updateCredit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.mode = manageModeBrowse
		m.statusMessage = "credit cancelled"
		return m, nil
	case "tab", "shift+tab", "up", "down":
		if m.formIndex == 0 {
			m.formIndex = 1
			m.idInput.Blur()
			m.amountInput.Focus()
		} else {
			m.formIndex = 0
			m.amountInput.Blur()
			m.idInput.Focus()
		}
		return m, nil
	case "enter":
		id := strings.TrimSpace(m.idInput.Value())
		if id == "" {
			m.formError = "account id is required"
			return m, nil
		}
		amount, err := strconv.Atoi(strings.TrimSpace(m.amountInput.Value()))
		if err != nil || amount <= 0 {
			m.formError = "amount must be a number > 0"
			return m, nil
		}
		m.formError = ""
		return m, creditAccountCmd(m.dataDir, id, amount)
	}

	var cmd tea.Cmd
	if m.formIndex == 0 {
		m.idInput, cmd = m.idInput.Update(msg)
	} else {
		m.amountInput, cmd = m.amountInput.Update(msg)
	}
	return m, cmd
}

func (m manageModel) View() string {
	if m.mode == manageModeCredit {
		return m.viewCredit()
	}
	return m.viewBrowse()
}

func (m manageModel) viewBrowse() string {
	var b strings.Builder
	b.WriteString(manageTitleStyle.Render("Token Accounts"))
	b.WriteString("  ")
	if m.enabled {
		b.WriteString(manageOKStyle.Render("system enabled"))
	} else {
		b.WriteString(manageErrorStyle.Render("system disabled"))
	}
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(manageMutedStyle.Render("no accounts yet"))
		b.WriteString("\n")
	}
	for i, row := range m.rows {
		line := fmt.Sprintf("%-22s %4d token(s)   last daily %s", row.ID, row.Tokens, row.LastDaily)
		if i == m.cursor {
			line = manageSelStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.statusMessage != "" {
		b.WriteString(manageMutedStyle.Render(m.statusMessage))
		b.WriteString("\n")
	}
	b.WriteString(manageMutedStyle.Render("enter credit selected · n credit new · t toggle system · r reload · q quit"))
	return managePanelStyle.Render(b.String())
}

func (m manageModel) viewCredit() string {
	var b strings.Builder
	b.WriteString(manageTitleStyle.Render("Credit Account"))
	b.WriteString("\n\n")
	b.WriteString("account: " + m.idInput.View())
	b.WriteString("\n")
	b.WriteString("amount:  " + m.amountInput.View())
	b.WriteString("\n\n")
	if m.formError != "" {
		b.WriteString(manageErrorStyle.Render(m.formError))
		b.WriteString("\n")
	}
	b.WriteString(manageMutedStyle.Render("enter save · tab switch field · esc cancel"))
	return managePanelStyle.Render(b.String())
}
