package midi

import (
	"time"

	"github.com/rapidmidiex/rmxtoys/wsmsg"
)

// Apply forwards a jam MIDI message to the renderer on channel 0.
func Apply(r Renderer, msg wsmsg.MIDIMsg) {
	note := int32(msg.Number)
	switch msg.State {
	case wsmsg.NOTE_ON:
		r.NoteOn(0, note, int32(msg.Velocity))
	case wsmsg.NOTE_OFF:
		r.NoteOff(0, note)
	}
}

// RenderMsg applies msg and renders the next clipLength of audio.
func RenderMsg(r Renderer, msg wsmsg.MIDIMsg, clipLength time.Duration) *MidiStreamer {
	ms := NewMIDIStreamer(clipLength, r.SampleRate())
	Apply(r, msg)
	r.Render(ms.left, ms.right)
	return ms
}
