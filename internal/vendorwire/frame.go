package vendorwire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxFrameLen bounds a single frame's payload, guarding the reader against a
// corrupt length prefix turning into an unbounded allocation.
const MaxFrameLen = 1 << 20 // 1 MiB

const (
	frameTagRequest   = 0x01
	frameTagEvent     = 0x02
	frameTagHandshake = 0x03
)

// Handshake is the signed CONNECT frame sent immediately after the socket
// opens, before any Request/Event traffic. internal/auth produces the
// signature; vendorwire only carries the bytes.
type Handshake struct {
	KeyID       string `json:"key_id"`
	ClientID    string `json:"client_id"`
	TimestampMs int64  `json:"timestamp_ms"`
	Signature   string `json:"signature"`
}

// WriteHandshake encodes and writes the handshake frame.
func WriteHandshake(w io.Writer, h Handshake) error {
	payload, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("vendorwire: marshal handshake: %w", err)
	}
	return writeFrame(w, frameTagHandshake, payload)
}

// ReadHandshake reads and decodes a single handshake frame from r.
func ReadHandshake(r io.Reader) (Handshake, error) {
	tag, payload, err := readFrame(r)
	if err != nil {
		return Handshake{}, err
	}
	if tag != frameTagHandshake {
		return Handshake{}, fmt.Errorf("vendorwire: expected handshake frame, got tag %#x", tag)
	}
	var h Handshake
	if err := json.Unmarshal(payload, &h); err != nil {
		return Handshake{}, fmt.Errorf("vendorwire: unmarshal handshake: %w", err)
	}
	return h, nil
}

// WriteRequest encodes a Request as a length-prefixed frame and writes it to w.
func WriteRequest(w io.Writer, req Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("vendorwire: marshal request: %w", err)
	}
	return writeFrame(w, frameTagRequest, payload)
}

// WriteEvent encodes an Event as a length-prefixed frame and writes it to w.
func WriteEvent(w io.Writer, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("vendorwire: marshal event: %w", err)
	}
	return writeFrame(w, frameTagEvent, payload)
}

func writeFrame(w io.Writer, tag byte, payload []byte) error {
	if len(payload) > MaxFrameLen {
		return fmt.Errorf("vendorwire: frame payload %d bytes exceeds max %d", len(payload), MaxFrameLen)
	}

	header := make([]byte, 5)
	binary.BigEndian.PutUint32(header[0:4], uint32(len(payload)+1))
	header[4] = tag

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("vendorwire: write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("vendorwire: write frame payload: %w", err)
	}
	return nil
}

// ReadRequest reads and decodes a single Request frame from r. It is the
// server side's counterpart to WriteRequest and is used by test fixtures
// that stand in for the vendor endpoint.
func ReadRequest(r io.Reader) (Request, error) {
	tag, payload, err := readFrame(r)
	if err != nil {
		return Request{}, err
	}
	if tag != frameTagRequest {
		return Request{}, fmt.Errorf("vendorwire: expected request frame, got tag %#x", tag)
	}
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return Request{}, fmt.Errorf("vendorwire: unmarshal request: %w", err)
	}
	return req, nil
}

// ReadEvent reads and decodes a single Event frame from r. This is the
// bridge side's normal read path against the upstream connection.
func ReadEvent(r io.Reader) (Event, error) {
	tag, payload, err := readFrame(r)
	if err != nil {
		return Event{}, err
	}
	if tag != frameTagEvent {
		return Event{}, fmt.Errorf("vendorwire: expected event frame, got tag %#x", tag)
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("vendorwire: unmarshal event: %w", err)
	}
	return ev, nil
}

func readFrame(r io.Reader) (byte, []byte, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}

	length := binary.BigEndian.Uint32(header[0:4])
	if length == 0 {
		return 0, nil, fmt.Errorf("vendorwire: zero-length frame")
	}
	if length-1 > MaxFrameLen {
		return 0, nil, fmt.Errorf("vendorwire: frame payload %d bytes exceeds max %d", length-1, MaxFrameLen)
	}
	tag := header[4]

	payload := make([]byte, length-1)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("vendorwire: read frame payload: %w", err)
	}
	return tag, payload, nil
}
