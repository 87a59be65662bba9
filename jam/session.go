package jam

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rapidmidiex/rmxtoys/schedule"
	"github.com/rapidmidiex/rmxtoys/wsmsg"
)

type (
	// Clock times published messages. player.SystemClock satisfies it.
	Clock interface {
		Now() time.Time
		After(d time.Duration) <-chan time.Time
	}

	// Session is a websocket connection to one jam room.
	Session struct {
		JamID string

		conn   *websocket.Conn
		logger *zap.Logger

		mu     sync.Mutex
		userID uuid.UUID
	}

	// Timed is an envelope payload due At after the toy starts.
	Timed struct {
		At      time.Duration
		Typ     wsmsg.MsgType
		Payload any
	}
)

// Dial joins the jam room.
func (c *Client) Dial(ctx context.Context, jamID string) (*Session, error) {
	jURL := c.wsURL + "/jam/" + url.PathEscape(jamID)
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, jURL, nil)
	if err != nil {
		return nil, fmt.Errorf("jamConnect: %v: %w", jURL, err)
	}
	c.logger.Info("joined jam", zap.String("id", jamID))
	return &Session{JamID: jamID, conn: ws, logger: c.logger}, nil
}

// UserID is the ID the server assigned in its connect message.
func (s *Session) UserID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) send(typ wsmsg.MsgType, payload any) (uuid.UUID, error) {
	env, err := wsmsg.New(typ, s.UserID(), payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(env); err != nil {
		return uuid.Nil, fmt.Errorf("writeJSON: %w", err)
	}
	return env.ID, nil
}

func (s *Session) SendText(body, displayName string) (uuid.UUID, error) {
	return s.send(wsmsg.TEXT, wsmsg.TextMsg{Body: body, DisplayName: displayName})
}

// Read blocks for the next envelope. Connect messages also set the user ID.
func (s *Session) Read() (wsmsg.Envelope, error) {
	var message wsmsg.Envelope
	if err := s.conn.ReadJSON(&message); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			return message, fmt.Errorf("readJSON: unexpected close: %w", err)
		}
		return message, fmt.Errorf("readJSON: %w", err)
	}
	if message.Typ == wsmsg.CONNECT {
		var con wsmsg.ConnectMsg
		if err := message.Unwrap(&con); err != nil {
			return message, fmt.Errorf("unmarshal ConnectMsg: %w", err)
		}
		s.mu.Lock()
		s.userID = con.UserID
		s.mu.Unlock()
	}
	return message, nil
}

// Messages lays out what Publish sends: a note on and off per event and a
// caption message whenever a caption starts.
func Messages(toy string, sched *schedule.Schedule) []Timed {
	type entry struct {
		Timed
		order int
	}
	var entries []entry
	for _, e := range sched.Events {
		entries = append(entries,
			entry{Timed{At: e.Start, Typ: wsmsg.MIDI, Payload: wsmsg.MIDIMsg{State: wsmsg.NOTE_ON, Number: e.Note, Velocity: e.Velocity}}, 2},
			entry{Timed{At: e.End(), Typ: wsmsg.MIDI, Payload: wsmsg.MIDIMsg{State: wsmsg.NOTE_OFF, Number: e.Note}}, 0},
		)
	}
	for _, c := range sched.Captions {
		entries = append(entries, entry{Timed{At: c.Start, Typ: wsmsg.CAPTION, Payload: wsmsg.CaptionMsg{
			Toy:   toy,
			Input: sched.Input,
			Text:  c.Text,
			Span:  c.Span,
			AtMS:  c.Start.Milliseconds(),
		}}, 1})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].At != entries[j].At {
			return entries[i].At < entries[j].At
		}
		return entries[i].order < entries[j].order
	})
	out := make([]Timed, len(entries))
	for i, e := range entries {
		out[i] = e.Timed
	}
	return out
}

// Publish sends the schedule into the room, each message at its time on clock.
// When it stops early, notes already started in the room are released.
func (s *Session) Publish(ctx context.Context, toy string, sched *schedule.Schedule, clock Clock) (err error) {
	msgs := Messages(toy, sched)
	sounding := map[int]int{}
	defer func() {
		if err != nil {
			s.release(sounding)
		}
	}()

	start := clock.Now()
	for _, m := range msgs {
		if wait := m.At - clock.Now().Sub(start); wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clock.After(wait):
			}
		}
		if _, err := s.send(m.Typ, m.Payload); err != nil {
			return err
		}
		if note, ok := m.Payload.(wsmsg.MIDIMsg); ok {
			if note.State == wsmsg.NOTE_ON {
				sounding[note.Number]++
			} else {
				sounding[note.Number]--
			}
		}
	}
	s.logger.Debug("published toy", zap.String("toy", toy), zap.Int("messages", len(msgs)))
	return nil
}

// release sends a note off for every note still sounding, lowest first.
func (s *Session) release(sounding map[int]int) {
	notes := make([]int, 0, len(sounding))
	for n, c := range sounding {
		if c > 0 {
			notes = append(notes, n)
		}
	}
	sort.Ints(notes)
	for _, n := range notes {
		for i := 0; i < sounding[n]; i++ {
			if _, err := s.send(wsmsg.MIDI, wsmsg.MIDIMsg{State: wsmsg.NOTE_OFF, Number: n}); err != nil {
				s.logger.Warn("release note", zap.Int("note", n), zap.Error(err))
				return
			}
		}
	}
}

// Close sends a close frame and drops the connection.
func (s *Session) Close() error {
	s.mu.Lock()
	err := s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second*10),
	)
	s.mu.Unlock()
	if cerr := s.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
