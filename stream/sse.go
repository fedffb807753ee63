// Package stream subscribes to server push live updates.
package stream

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"
)

// Event is a single dispatched server sent event.
type Event struct {
	ID    string
	Type  string
	Data  []byte
	Retry time.Duration
}

// Decoder splits text/event-stream into events.
type Decoder struct {
	r      *bufio.Reader
	lastID string
	// previous line ended with CR, LF right after it belongs to it
	skipLF bool
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next blocks until complete event is received. Events without data are
// skipped except when they carry event type. io.EOF is returned when stream
// ends, partially received event is dropped.
func (d *Decoder) Next() (*Event, error) {
	var (
		ev      Event
		data    bytes.Buffer
		hasData bool
		started bool
	)
	for {
		line, err := d.readLine()
		if err != nil {
			return nil, err
		}

		if line == "" {
			if !started {
				continue
			}
			if !hasData && ev.Type == "" {
				ev, hasData, started = Event{}, false, false
				data.Reset()
				continue
			}
			ev.ID = d.lastID
			ev.Data = data.Bytes()
			if ev.Type == "" {
				ev.Type = "message"
			}
			return &ev, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		started = true

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Type = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				d.lastID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				ev.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
}

// readLine returns line without terminator, which is any of CRLF, LF or CR.
func (d *Decoder) readLine() (string, error) {
	var line []byte
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			if err == io.EOF && len(line) > 0 {
				// last line without terminator cannot finish an event
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		if d.skipLF {
			d.skipLF = false
			if b == '\n' {
				continue
			}
		}
		switch b {
		case '\n':
			return string(line), nil
		case '\r':
			d.skipLF = true
			return string(line), nil
		}
		line = append(line, b)
	}
}
