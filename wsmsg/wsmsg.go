// Package wsmsg contains the RMX message types exchanged with a jam server.
package wsmsg

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type (
	MsgType   int
	NoteState int

	Envelope struct {
		// Message identifier
		ID uuid.UUID `json:"id"`
		// TextMsg | MIDIMsg | ConnectMsg | CaptionMsg
		Typ MsgType `json:"type"`
		// RMX client identifier
		UserID uuid.UUID `json:"userId"`
		// Actual message data.
		Payload json.RawMessage `json:"payload"`
	}

	TextMsg struct {
		DisplayName string `json:"displayName"`
		Body        string `json:"body"`
	}

	MIDIMsg struct {
		State NoteState `json:"state"`
		// MIDI note number, C4 = 60. Available values: (0-127)
		Number int `json:"number"`
		// MIDI Velocity (0-127)
		Velocity int `json:"velocity"`
	}

	ConnectMsg struct {
		UserID   uuid.UUID `json:"userId"`
		UserName string    `json:"userName"`
	}

	// CaptionMsg highlights part of the input a toy is playing.
	CaptionMsg struct {
		Toy   string `json:"toy"`
		Input string `json:"input"`
		Text  string `json:"text"`
		// Rune offsets of Text in Input.
		Span [2]int `json:"span"`
		// Milliseconds from the start of the toy.
		AtMS int64 `json:"atMs"`
	}
)

const (
	TEXT MsgType = iota
	MIDI
	CONNECT
	CAPTION
)

const (
	NOTE_OFF NoteState = iota
	NOTE_ON
)

var typeNames = map[MsgType]string{
	TEXT:    "text",
	MIDI:    "midi",
	CONNECT: "connect",
	CAPTION: "caption",
}

// New wraps payload in an envelope with a fresh ID.
func New(typ MsgType, userID uuid.UUID, payload any) (Envelope, error) {
	e := Envelope{ID: uuid.New(), Typ: typ, UserID: userID}
	if err := e.SetPayload(payload); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

func (e *Envelope) SetPayload(payload any) error {
	p, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	e.Payload = p
	return nil
}

func (e *Envelope) Unwrap(msg any) error {
	return json.Unmarshal(e.Payload, msg)
}

func (t MsgType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MsgType(%d)", int(t))
}

func (t *MsgType) UnmarshalJSON(data []byte) error {
	var rawType string
	if err := json.Unmarshal(data, &rawType); err != nil {
		return err
	}
	for typ, name := range typeNames {
		if name == rawType {
			*t = typ
			return nil
		}
	}
	return fmt.Errorf("unknown type: %s", rawType)
}

func (t MsgType) MarshalJSON() ([]byte, error) {
	name, ok := typeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown MsgTyp value: %d", t)
	}
	return json.Marshal(name)
}
