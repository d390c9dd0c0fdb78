// Package ui is a terminal view of one seat at the table.
package ui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vctt94/holdemtable/pkg/client"
	"github.com/vctt94/holdemtable/pkg/poker"
)

// Sender delivers requests to the server.
type Sender interface {
	Send(client.Request) error
}

type serverMsg client.Message

type closedMsg struct{}

type sendErrMsg struct{ err error }

// chatLines is how much chat history the view keeps.
const chatLines = 5

// Model is the bubbletea model for a seated player.
type Model struct {
	sender   Sender
	updates  <-chan client.Message
	playerID string

	state     *poker.TableSnapshot
	amount    string
	entering  bool
	draft     string
	composing bool
	chat      []string
	status    string
	err       string
}

// NewModel builds a model that reads server messages from updates.
func NewModel(sender Sender, updates <-chan client.Message) *Model {
	return &Model{sender: sender, updates: updates}
}

// Init starts listening for server messages.
func (m *Model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

func waitForUpdate(updates <-chan client.Message) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return serverMsg(msg)
	}
}

func (m *Model) send(req client.Request) tea.Cmd {
	sender := m.sender
	return func() tea.Msg {
		if err := sender.Send(req); err != nil {
			return sendErrMsg{err}
		}
		return nil
	}
}

// Update handles key presses and server messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case serverMsg:
		m.HandleMessage(client.Message(msg))
		return m, waitForUpdate(m.updates)

	case sendErrMsg:
		m.err = msg.err.Error()
		return m, nil

	case closedMsg:
		m.err = "disconnected from server"
		return m, tea.Quit
	}
	return m, nil
}

// HandleMessage applies a server message to the model.
func (m *Model) HandleMessage(msg client.Message) {
	switch msg.Type {
	case "state":
		m.state = msg.State
	case "joined":
		m.playerID = msg.PlayerID
		m.state = msg.State
		m.status = fmt.Sprintf("seated at %d", msg.Seat)
		m.err = ""
	case "actionRejected", "adminError":
		m.err = fmt.Sprintf("%s: %s", msg.Action, msg.Error)
	case "adminResult":
		if msg.OK != nil && *msg.OK {
			m.status = "admin mode"
		} else {
			m.err = "admin authentication failed"
		}
	case "records":
		if r := msg.Records; r != nil {
			m.status = fmt.Sprintf("highest pot %d, biggest win %d", r.HighestPot, r.BiggestWin)
		}
	case "chat":
		m.chat = append(m.chat, fmt.Sprintf("%s: %s", msg.Name, msg.Text))
		if len(m.chat) > chatLines {
			m.chat = m.chat[len(m.chat)-chatLines:]
		}
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.entering {
		return m.handleAmountKey(msg)
	}
	if m.composing {
		return m.handleChatKey(msg)
	}

	m.err = ""
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "s":
		return m, m.send(client.Request{Type: "startHand"})
	case "n":
		return m, m.send(client.Request{Type: "advancePhase"})
	case "c":
		return m, m.send(client.Request{Type: m.checkOrCall()})
	case "f":
		return m, m.send(client.Request{Type: "fold"})
	case "a":
		return m, m.send(client.Request{Type: "allIn"})
	case "r":
		return m, m.send(client.Request{Type: "getRecords"})
	case "b":
		m.entering = true
		m.amount = ""
	case "t":
		m.composing = true
		m.draft = ""
	}
	return m, nil
}

func (m *Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.composing = false
		m.draft = ""
	case tea.KeyBackspace:
		if r := []rune(m.draft); len(r) > 0 {
			m.draft = string(r[:len(r)-1])
		}
	case tea.KeyEnter:
		m.composing = false
		text := strings.TrimSpace(m.draft)
		m.draft = ""
		if text == "" {
			return m, nil
		}
		return m, m.send(client.Request{Type: "chat", Text: text})
	case tea.KeySpace:
		m.draft += " "
	case tea.KeyRunes:
		m.draft += string(msg.Runes)
	}
	return m, nil
}

func (m *Model) handleAmountKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.entering = false
		m.amount = ""
	case tea.KeyBackspace:
		if len(m.amount) > 0 {
			m.amount = m.amount[:len(m.amount)-1]
		}
	case tea.KeyEnter:
		m.entering = false
		amt, err := strconv.ParseInt(m.amount, 10, 64)
		m.amount = ""
		if err != nil || amt <= 0 {
			m.err = "enter a positive amount"
			return m, nil
		}
		typ := "raise"
		if m.state == nil || m.state.CurrentBet == 0 {
			typ = "bet"
		}
		return m, m.send(client.Request{Type: typ, Amount: amt})
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if r >= '0' && r <= '9' {
				m.amount += string(r)
			}
		}
	}
	return m, nil
}

// checkOrCall picks the free action when nothing is owed.
func (m *Model) checkOrCall() string {
	if p := m.me(); p != nil && m.state.CurrentBet > p.Contribution {
		return "call"
	}
	return "check"
}

func (m *Model) me() *poker.PlayerSnapshot {
	if m.state == nil || m.playerID == "" {
		return nil
	}
	for i := range m.state.Players {
		if m.state.Players[i].ID == m.playerID {
			return &m.state.Players[i]
		}
	}
	return nil
}

// View renders the table, prompt and key help.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(RenderTable(m.state, m.playerID))
	b.WriteString("\n")
	for _, line := range m.chat {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.entering {
		b.WriteString(FocusedStyle.Render("Amount: " + m.amount + "_"))
		b.WriteString("\n")
	}
	if m.composing {
		b.WriteString(FocusedStyle.Render("Say: " + m.draft + "_"))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(InfoStyle.Render(m.status))
		b.WriteString("\n")
	}
	if m.err != "" {
		b.WriteString(ErrorStyle.Render(m.err))
		b.WriteString("\n")
	}
	if m.entering || m.composing {
		b.WriteString(HelpStyle.Render("enter: submit • esc: cancel"))
	} else {
		b.WriteString(HelpStyle.Render("s: start hand • c: check/call • b: bet/raise • a: all in • f: fold • n: next phase • r: records • t: chat • q: quit"))
	}
	return b.String()
}
