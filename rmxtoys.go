// Package rmxtoys is the terminal UI: a menu of toys, the toy being played
// and an optional jam the toys are shared to.
package rmxtoys

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rapidmidiex/rmxtoys/inputui"
	"github.com/rapidmidiex/rmxtoys/jam"
	"github.com/rapidmidiex/rmxtoys/keymap"
	"github.com/rapidmidiex/rmxtoys/menuui"
	"github.com/rapidmidiex/rmxtoys/rmxerr"
	"github.com/rapidmidiex/rmxtoys/toys"
	"github.com/rapidmidiex/rmxtoys/toyui"
	"github.com/rapidmidiex/rmxtoys/wsmsg"
)

// ********
// Code heavily based on "Project Journal"
// https://github.com/bashbunni/pjs
// https://www.youtube.com/watch?v=uJ2egAkSkjg&t=319s
// ********

type (
	appView int

	// Dialer joins jam rooms. *jam.Client satisfies it.
	Dialer interface {
		Dial(ctx context.Context, jamID string) (*jam.Session, error)
	}

	connectedMsg struct {
		session *jam.Session
	}

	// sessionMsg wraps what was read from the jam so Update listens again.
	sessionMsg struct {
		session *jam.Session
		msg     tea.Msg
	}

	mainModel struct {
		curView appView
		menu    menuui.Model
		toy     toyui.Model
		deps    toyui.Deps
		server  string
		dialer  Dialer
		session *jam.Session
		logger  *zap.Logger
		err     error
	}

	Opts struct {
		Deps toyui.Deps
		// Server is shown in the header.
		Server string
		// Client is nil when jams are disabled.
		Client *jam.Client
		Logger *zap.Logger
	}
)

const (
	menuView appView = iota
	toyView
)

func NewModel(o Opts) mainModel {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	o.Deps.Logger = o.Logger

	var (
		lister menuui.JamLister
		dialer Dialer
	)
	if o.Client != nil {
		lister, dialer = o.Client, o.Client
	}
	return mainModel{
		curView: menuView,
		menu:    menuui.New(lister),
		deps:    o.Deps,
		server:  o.Server,
		dialer:  dialer,
		logger:  o.Logger,
	}
}

func (m mainModel) Init() tea.Cmd {
	return m.menu.Init()
}

func (m mainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	// Handle incoming messages from I/O
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Ctrl+c exits. Even with short running programs it's good to have
		// a quit key, just incase your logic is off. Users will be very
		// annoyed if they can't exit.
		if key.Matches(msg, keymap.DefaultMapping.Quit) {
			m.closeSession()
			return m, tea.Quit
		}

	case menuui.ToySelected:
		toy, err := toys.Lookup(msg.Name)
		if err != nil {
			return m, rmxerr.Cmd(err)
		}
		deps := m.deps
		if m.session != nil {
			deps.Session = m.session
		}
		m.toy = toyui.New(toy, deps)
		m.curView = toyView
		m.logger.Info("toy selected", zap.String("toy", msg.Name))
		return m, m.toy.Init()

	case menuui.JamSelected:
		if m.dialer != nil {
			cmds = append(cmds, m.jamConnect(msg.ID))
		}

	case connectedMsg:
		m.closeSession()
		m.session = msg.session
		return m, listenSession(msg.session)

	case sessionMsg:
		if msg.session != m.session {
			return m, nil
		}
		if _, failed := msg.msg.(rmxerr.ErrMsg); failed {
			m.closeSession()
		} else {
			cmds = append(cmds, listenSession(msg.session))
		}
		next, cmd := m.Update(msg.msg)
		return next, tea.Batch(append(cmds, cmd)...)

	case toyui.LeaveMsg:
		m.curView = menuView
		return m, nil

	case rmxerr.ErrMsg:
		m.err = msg
		m.logger.Warn("error", zap.Error(msg.Err))
	}

	// Call sub-model Updates
	switch m.curView {
	case menuView:
		m.menu, cmd = m.menu.Update(msg)
	case toyView:
		m.toy, cmd = m.toy.Update(msg)
	}

	// Run all commands from sub-model Updates
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m mainModel) View() string {
	serverLine := "\nOffline\n"
	if m.server != "" {
		serverLine = fmt.Sprintf("\nServer: %s\n", m.server)
	}
	if m.session != nil {
		serverLine = fmt.Sprintf("\nServer: %s  Jam: %s\n", m.server, m.session.JamID)
	}

	switch m.curView {
	case toyView:
		return serverLine + m.toy.View()
	default:
		return serverLine + m.menu.View()
	}
}

func (m *mainModel) closeSession() {
	if m.session == nil {
		return
	}
	if err := m.session.Close(); err != nil {
		m.logger.Debug("leave jam", zap.Error(err))
	}
	m.session = nil
	m.deps.Session = nil
}

func (m mainModel) jamConnect(jamID string) tea.Cmd {
	dialer := m.dialer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := dialer.Dial(ctx, jamID)
		if err != nil {
			return rmxerr.ErrMsg{Err: err}
		}
		return connectedMsg{session: s}
	}
}

// listenSession reads one envelope from the jam and turns it into a tea.Msg.
// https://github.com/charmbracelet/bubbletea/issues/25#issuecomment-732339162
func listenSession(s *jam.Session) tea.Cmd {
	return func() tea.Msg {
		message, err := s.Read()
		if err != nil {
			return sessionMsg{s, rmxerr.ErrMsg{Err: err}}
		}
		return sessionMsg{s, translate(message, s.UserID())}
	}
}

// translate maps a jam envelope to the message the views understand. Our own
// notes and captions come back from the server and are dropped.
func translate(message wsmsg.Envelope, self fmt.Stringer) tea.Msg {
	fromSelf := message.UserID.String() == self.String()
	switch message.Typ {
	case wsmsg.TEXT:
		var textMsg wsmsg.TextMsg
		if err := message.Unwrap(&textMsg); err != nil {
			return rmxerr.ErrMsg{Err: fmt.Errorf("unmarshal TextMsg: %+v\n%w", message, err)}
		}
		return inputui.RecvTextMsg{
			ID:          message.ID,
			DisplayName: textMsg.DisplayName,
			Msg:         textMsg.Body,
			FromSelf:    fromSelf,
		}

	case wsmsg.MIDI:
		var midiMsg wsmsg.MIDIMsg
		if err := message.Unwrap(&midiMsg); err != nil {
			return rmxerr.ErrMsg{Err: fmt.Errorf("unmarshal MIDIMsg: %+v\n%w", message, err)}
		}
		if fromSelf {
			return nil
		}
		return toyui.RemoteMIDIMsg{Msg: midiMsg}

	case wsmsg.CAPTION:
		var caption wsmsg.CaptionMsg
		if err := message.Unwrap(&caption); err != nil {
			return rmxerr.ErrMsg{Err: fmt.Errorf("unmarshal CaptionMsg: %+v\n%w", message, err)}
		}
		if fromSelf {
			return nil
		}
		return toyui.RemoteCaptionMsg{Caption: caption}

	case wsmsg.CONNECT:
		return inputui.LogMsg{Line: "Joined the jam."}
	}
	return rmxerr.ErrMsg{Err: fmt.Errorf("unknown message type: %+v", message)}
}

// Run starts the TUI and blocks until it quits.
func Run(o Opts) error {
	p := tea.NewProgram(NewModel(o), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
