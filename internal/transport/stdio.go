// Copyright 2026 The Guidrive Authors
//
// Stdio transport for JSON-RPC 2.0 communication

package transport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
)

// StdioTransport frames JSON-RPC 2.0 messages as newline-delimited JSON over
// a reader/writer pair, normally stdin/stdout. Reads and writes are guarded
// independently so a slow write cannot block the read loop.
type StdioTransport struct {
	reader  *bufio.Reader
	writer  io.Writer
	readMu  sync.Mutex
	writeMu sync.Mutex
	closed  bool
	stateMu sync.Mutex
}

// NewStdioTransport creates a stdio transport over the given streams.
func NewStdioTransport(in io.Reader, out io.Writer) *StdioTransport {
	return &StdioTransport{
		reader: bufio.NewReader(in),
		writer: out,
	}
}

// ErrTransportClosed is returned by operations on a closed transport.
var ErrTransportClosed = errors.New("transport is closed")

// ReadMessage reads the next JSON-RPC message. Blank lines are skipped.
// Returns io.EOF when the input stream ends.
func (t *StdioTransport) ReadMessage() (*Message, error) {
	t.readMu.Lock()
	defer t.readMu.Unlock()

	if t.IsClosed() {
		return nil, ErrTransportClosed
	}

	for {
		line, err := t.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(bytes.TrimSpace(line)) == 0 {
				return nil, io.EOF
			}
			if err != io.EOF {
				return nil, fmt.Errorf("reading message line: %w", err)
			}
			// Fall through: a final unterminated line is still a message.
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("parsing message: %w", err)
		}
		return &msg, nil
	}
}

// WriteMessage writes one JSON-RPC message followed by a newline.
func (t *StdioTransport) WriteMessage(msg *Message) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.IsClosed() {
		return ErrTransportClosed
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	data = append(data, '\n')
	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

// Close marks the transport closed. Idempotent.
func (t *StdioTransport) Close() error {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	t.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (t *StdioTransport) IsClosed() bool {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.closed
}

// Serve reads messages until EOF or Close, passing each to the handler and
// writing back any response. Handler errors become internal-error responses;
// they never terminate the loop.
func (t *StdioTransport) Serve(handler Handler) error {
	for {
		msg, err := t.ReadMessage()
		if err != nil {
			if err == io.EOF || errors.Is(err, ErrTransportClosed) {
				return nil
			}
			log.Printf("stdio transport: read error: %v", err)
			continue
		}

		response, err := handler(msg)
		if err != nil {
			response = NewError(msg.ID, ErrCodeInternalError, err.Error())
		}
		if response == nil {
			continue // notification
		}
		if err := t.WriteMessage(response); err != nil {
			log.Printf("stdio transport: write error: %v", err)
		}
	}
}

var _ Transport = (*StdioTransport)(nil)
