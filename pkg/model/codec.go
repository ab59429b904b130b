package model

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Header is the parsed header block of one framed event, before it is
// folded into an Event.
type Header struct {
	ID        string
	Timestamp float64
	Source    string
	Tags      []string
}

// Preamble is the parsed first line of a framed event: the total byte
// count, the header byte count, and the content byte count.
type Preamble struct {
	Total   int
	Header  int
	Content int
}

// EventSerializer writes events in the framed text format described by the
// wire codec: a preamble line, a header block, then raw content bytes.
type EventSerializer struct{}

// Serialize renders e as `event: <total> <header> <content>\n` followed by
// the header lines and the literal content bytes. It does not append the
// trailing separator newline — callers that persist a stream of events (see
// pkg/naivestore) append that themselves between events.
func (EventSerializer) Serialize(e Event) []byte {
	hdr := serializeHeader(e)
	hdrSize := len(hdr)
	cntSize := len(e.Content)
	total := hdrSize + cntSize

	var b strings.Builder
	b.Grow(len("event:  \n") + 3*20 + hdrSize + cntSize)
	fmt.Fprintf(&b, "event: %d %d %d\n", total, hdrSize, cntSize)
	b.WriteString(hdr)
	b.WriteString(e.Content)
	return []byte(b.String())
}

func serializeHeader(e Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id:%s\n", e.ID)
	fmt.Fprintf(&b, "timestamp: %.7f\n", e.Timestamp)
	fmt.Fprintf(&b, "source:%s\n", e.Source)
	fmt.Fprintf(&b, "tags:%s\n", strings.Join(e.Tags, ","))
	return b.String()
}

// EventParser reads events back out of the framed text format written by
// EventSerializer.
type EventParser struct{}

// ParsePreamble reads and parses the one-line preamble. It returns ErrEOF
// when the stream ends cleanly before any preamble bytes are available.
func (EventParser) ParsePreamble(r *bufio.Reader) (Preamble, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			return Preamble{}, ErrEOF
		}
		return Preamble{}, errors.Wrapf(ErrMalformedFrame, "reading preamble: %v", err)
	}
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "event:") {
		return Preamble{}, errors.Wrapf(ErrMalformedFrame, "invalid preamble line %q", line)
	}
	fields := strings.Fields(strings.TrimPrefix(line, "event:"))
	if len(fields) != 3 {
		return Preamble{}, errors.Wrapf(ErrMalformedFrame, "invalid preamble values %q", line)
	}
	values := make([]int, 3)
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return Preamble{}, errors.Wrapf(ErrMalformedFrame, "invalid preamble integer %q", f)
		}
		values[i] = n
	}
	return Preamble{Total: values[0], Header: values[1], Content: values[2]}, nil
}

// ParseHeader reads exactly size header bytes and parses the id/timestamp/
// source/tags lines, in any order. Unknown property names fail with
// ErrMalformedFrame.
func (EventParser) ParseHeader(r io.Reader, size int) (Header, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, errors.Wrapf(ErrMalformedFrame, "reading header: %v", err)
	}

	var hdr Header
	sc := bufio.NewScanner(strings.NewReader(string(buf)))
	for sc.Scan() {
		ln := strings.TrimSpace(sc.Text())
		if ln == "" {
			return Header{}, errors.Wrap(ErrMalformedFrame, "empty header line")
		}
		idx := strings.IndexByte(ln, ':')
		if idx < 0 {
			return Header{}, errors.Wrapf(ErrMalformedFrame, "malformed header line %q", ln)
		}
		prop, value := ln[:idx], ln[idx+1:]
		switch prop {
		case "id":
			hdr.ID = value
		case "timestamp":
			ts, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return Header{}, errors.Wrapf(ErrMalformedFrame, "invalid timestamp %q", value)
			}
			hdr.Timestamp = ts
		case "source":
			hdr.Source = value
		case "tags":
			if value == "" {
				hdr.Tags = []string{}
			} else {
				hdr.Tags = strings.Split(value, ",")
			}
		default:
			return Header{}, errors.Wrapf(ErrMalformedFrame, "unknown header property %q", prop)
		}
	}
	return hdr, nil
}

// ParseEvent reads one full framed event from r: preamble, header, content,
// and the trailing separator byte before the next event. The separator may
// be absent when the content runs to the end of the stream, as it does in a
// single-event transport frame. When
// skipContent is true the content bytes are discarded rather than decoded,
// useful for callers that only need header metadata.
func (EventParser) ParseEvent(r *bufio.Reader, skipContent bool) (Event, error) {
	var p EventParser
	preamble, err := p.ParsePreamble(r)
	if err != nil {
		return Event{}, err
	}
	hdr, err := p.ParseHeader(r, preamble.Header)
	if err != nil {
		return Event{}, err
	}

	var content string
	if skipContent {
		if _, err := io.CopyN(io.Discard, r, int64(preamble.Content)); err != nil {
			return Event{}, errors.Wrap(ErrMalformedFrame, "skipping content")
		}
	} else {
		buf := make([]byte, preamble.Content)
		if _, err := io.ReadFull(r, buf); err != nil {
			return Event{}, errors.Wrap(ErrMalformedFrame, "reading content")
		}
		content = string(buf)
	}

	if sep, err := r.ReadByte(); (err != nil && err != io.EOF) || (err == nil && sep != '\n') {
		return Event{}, errors.Wrap(ErrMalformedFrame, "missing event separator")
	}

	return Event{
		ID:        hdr.ID,
		Source:    hdr.Source,
		Timestamp: hdr.Timestamp,
		Tags:      hdr.Tags,
		Content:   content,
	}, nil
}
