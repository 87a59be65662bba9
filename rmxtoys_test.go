package rmxtoys

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rapidmidiex/rmxtoys/inputui"
	"github.com/rapidmidiex/rmxtoys/menuui"
	"github.com/rapidmidiex/rmxtoys/rmxerr"
	"github.com/rapidmidiex/rmxtoys/toyui"
	"github.com/rapidmidiex/rmxtoys/wsmsg"
)

func envelope(t *testing.T, typ wsmsg.MsgType, from uuid.UUID, payload any) wsmsg.Envelope {
	t.Helper()
	env, err := wsmsg.New(typ, from, payload)
	require.NoError(t, err)
	return env
}

func TestTranslate(t *testing.T) {
	self, other := uuid.New(), uuid.New()
	note := wsmsg.MIDIMsg{State: wsmsg.NOTE_ON, Number: 64, Velocity: 90}
	caption := wsmsg.CaptionMsg{Toy: "chords", Input: "C G", Text: "G", Span: [2]int{2, 3}}

	tcs := []struct {
		name string
		env  wsmsg.Envelope
		want tea.Msg
	}{
		{
			name: "notes from others play",
			env:  envelope(t, wsmsg.MIDI, other, note),
			want: toyui.RemoteMIDIMsg{Msg: note},
		},
		{
			name: "our own notes are dropped",
			env:  envelope(t, wsmsg.MIDI, self, note),
			want: nil,
		},
		{
			name: "captions from others are shown",
			env:  envelope(t, wsmsg.CAPTION, other, caption),
			want: toyui.RemoteCaptionMsg{Caption: caption},
		},
		{
			name: "connect is logged",
			env:  envelope(t, wsmsg.CONNECT, uuid.Nil, wsmsg.ConnectMsg{UserID: self}),
			want: inputui.LogMsg{Line: "Joined the jam."},
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, translate(tc.env, self))
		})
	}

	t.Run("text keeps the sender", func(t *testing.T) {
		env := envelope(t, wsmsg.TEXT, self, wsmsg.TextMsg{DisplayName: "me", Body: "hello"})
		got := translate(env, self)
		require.Equal(t, inputui.RecvTextMsg{ID: env.ID, DisplayName: "me", Msg: "hello", FromSelf: true}, got)
	})

	t.Run("unknown types are errors", func(t *testing.T) {
		env := envelope(t, wsmsg.MIDI, other, note)
		env.Typ = wsmsg.MsgType(42)
		_, ok := translate(env, self).(rmxerr.ErrMsg)
		require.True(t, ok)
	})
}

func TestNavigation(t *testing.T) {
	m := NewModel(Opts{})
	require.Equal(t, menuView, m.curView)
	require.Contains(t, m.View(), "Offline")

	next, _ := m.Update(menuui.ToySelected{Name: "numbers-circle"})
	m = next.(mainModel)
	require.Equal(t, toyView, m.curView)
	require.Contains(t, m.View(), "numbers-circle")

	next, _ = m.Update(toyui.LeaveMsg{})
	m = next.(mainModel)
	require.Equal(t, menuView, m.curView)

	next, cmd := m.Update(menuui.ToySelected{Name: "theremin"})
	m = next.(mainModel)
	require.Equal(t, menuView, m.curView)
	_, ok := cmd().(rmxerr.ErrMsg)
	require.True(t, ok)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.Equal(t, tea.Quit(), cmd())
}
