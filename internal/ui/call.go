package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mockmate-app/mockmate-live/internal/control"
	"github.com/mockmate-app/mockmate-live/internal/room"
	"github.com/mockmate-app/mockmate-live/internal/session"
	"github.com/mockmate-app/mockmate-live/internal/signaling"
)

const chatLogLines = 12

// CallModel is the interactive in-call screen: connection status, the chat
// log, and device controls.
type CallModel struct {
	call *room.Call

	state      session.State
	peerStatus *control.PeerStatusPayload
	lastErr    string
	notice     string

	chatLog []string
	input   textinput.Model
	spinner spinner.Model

	startTime time.Time
	sent      int
	received  int
	quitting  bool
}

type sessionEventMsg session.Event

type chatEventMsg *signaling.ChatMessage

type chatClosedMsg struct{}

func NewCallModel(call *room.Call) *CallModel {
	ti := textinput.New()
	ti.Placeholder = "Type a message and press enter"
	ti.CharLimit = 500
	ti.Width = 60
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &CallModel{
		call:      call,
		state:     call.Controller.State(),
		input:     ti,
		spinner:   s,
		startTime: time.Now(),
	}
}

// Summary reports what happened during the call, for the post-call table.
func (m *CallModel) Summary() CallSummary {
	return CallSummary{
		RoomCode:         m.call.Code,
		Duration:         time.Since(m.startTime),
		MessagesSent:     m.sent,
		MessagesReceived: m.received,
		FinalState:       m.state.String(),
	}
}

func (m *CallModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
		m.waitForSessionEvent(),
		m.waitForChat(),
	)
}

func (m *CallModel) waitForSessionEvent() tea.Cmd {
	return func() tea.Msg {
		return sessionEventMsg(<-m.call.Controller.Events())
	}
}

func (m *CallModel) waitForChat() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.call.Chat.Incoming()
		if !ok {
			return chatClosedMsg{}
		}
		return chatEventMsg(msg)
	}
}

func (m *CallModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			m.call.Controller.HangUp()
			return m, tea.Quit

		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text != "" {
				sent := m.call.Chat.Send(text)
				m.appendChat(fmt.Sprintf("[%s] you: %s", sent.Time, sent.Message))
				m.sent++
				m.input.Reset()
			}
			return m, nil

		case "ctrl+a":
			if err := m.call.Controller.ToggleAudio(); err != nil {
				m.lastErr = err.Error()
			} else {
				m.lastErr = ""
			}
			return m, nil

		case "ctrl+e":
			if err := m.call.Controller.ToggleVideo(); err != nil {
				m.lastErr = err.Error()
			} else {
				m.lastErr = ""
			}
			return m, nil

		case "ctrl+s":
			var err error
			if m.call.Controller.LocalStatus().ScreenSharing {
				err = m.call.Controller.StopScreenShare()
			} else {
				err = m.call.Controller.ShareScreen()
			}
			if err != nil {
				m.lastErr = err.Error()
			} else {
				m.lastErr = ""
			}
			return m, nil
		}

	case sessionEventMsg:
		ev := session.Event(msg)
		switch ev.Type {
		case session.EventStateChanged:
			m.state = ev.State
			if ev.State == session.StateTerminated {
				m.quitting = true
				return m, tea.Quit
			}

		case session.EventError:
			if ev.Err != nil {
				m.lastErr = ev.Err.Error()
			}

		case session.EventRemoteTrack:
			m.notice = fmt.Sprintf("receiving remote %s", ev.TrackKind)

		case session.EventPeerStatus:
			m.peerStatus = ev.PeerStatus

		case session.EventPeerHangUp:
			m.notice = "peer hung up"
			m.quitting = true
			m.call.Controller.HangUp()
			return m, tea.Quit

		case session.EventReconnectScheduled:
			m.notice = fmt.Sprintf("connection lost, retrying in %s", ev.Delay)
			m.quitting = true
			return m, tea.Quit
		}
		cmds = append(cmds, m.waitForSessionEvent())

	case chatEventMsg:
		chat := (*signaling.ChatMessage)(msg)
		m.appendChat(fmt.Sprintf("[%s] %s: %s", chat.Time, shortID(chat.Author), chat.Message))
		m.received++
		cmds = append(cmds, m.waitForChat())

	case chatClosedMsg:
		m.notice = "chat channel closed"

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *CallModel) appendChat(line string) {
	m.chatLog = append(m.chatLog, line)
	if len(m.chatLog) > chatLogLines {
		m.chatLog = m.chatLog[len(m.chatLog)-chatLogLines:]
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (m *CallModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s MockMate Live  %s  %s", IconPhone, IconRoom, m.call.Code)))
	b.WriteString("\n")

	switch m.state {
	case session.StateConnected:
		b.WriteString(fmt.Sprintf("%s %s\n", SuccessStyle.Render("●"), "connected"))
	case session.StateAwaitingPeer:
		b.WriteString(fmt.Sprintf("%s waiting for the other participant...\n", m.spinner.View()))
	default:
		b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), m.state))
	}

	status := m.call.Controller.LocalStatus()
	b.WriteString(fmt.Sprintf("\n%s %s  %s %s  %s %s\n",
		IconMic, onOff(status.AudioEnabled),
		IconCamera, onOff(status.VideoEnabled),
		IconScreen, onOff(status.ScreenSharing),
	))

	if m.peerStatus != nil {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("%s peer: mic %s, camera %s, screen %s\n",
			IconPeer,
			onOff(m.peerStatus.AudioEnabled),
			onOff(m.peerStatus.VideoEnabled),
			onOff(m.peerStatus.ScreenSharing),
		)))
	}

	b.WriteString("\n" + ChatBoxStyle.Render(m.chatView()) + "\n")
	b.WriteString(m.input.View() + "\n")

	if m.notice != "" {
		b.WriteString(WarningStyle.Render(m.notice) + "\n")
	}
	if m.lastErr != "" {
		b.WriteString(ErrorStyle.Render(m.lastErr) + "\n")
	}

	b.WriteString(FooterStyle.Render("ctrl+a mic · ctrl+e camera · ctrl+s screen share · esc hang up"))

	return b.String()
}

func (m *CallModel) chatView() string {
	if len(m.chatLog) == 0 {
		return MutedStyle.Render(IconChat + " no messages yet")
	}
	return strings.Join(m.chatLog, "\n")
}

func onOff(v bool) string {
	if v {
		return SuccessStyle.Render("on")
	}
	return MutedStyle.Render("off")
}
