// Package transport writes engine notifications as LSP base-protocol
// messages: a Content-Length header block followed by a JSON-RPC 2.0
// notification body.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// ErrClosed is returned by SendNotification after Close.
var ErrClosed = errors.New("transport: connection closed")

// Message is a JSON-RPC 2.0 notification.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Conn frames notifications onto a writer. It implements engine.Sender.
//
// Safe for concurrent use; each message is written with one header and one
// body write under a lock so frames never interleave.
type Conn struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewConn returns a connection writing to w.
func NewConn(w io.Writer) *Conn {
	return &Conn{w: w}
}

// SendNotification encodes params and writes one framed message.
func (c *Conn) SendNotification(ctx context.Context, method string, params any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(method, params)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))
	if _, err := io.WriteString(c.w, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := c.w.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// Close marks the connection closed and closes the writer if it is an
// io.Closer. Later sends fail with ErrClosed.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if closer, ok := c.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

type outgoing struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// encode marshals the envelope without HTML escaping, so URIs containing
// '&' or '<' go out byte for byte.
func encode(method string, params any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(outgoing{JSONRPC: "2.0", Method: method, Params: params}); err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Reader reads framed messages, for tests and tools that consume the
// stream Conn produces.
type Reader struct {
	r *bufio.Reader
}

// NewReader returns a reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadMessage reads one message. Returns io.EOF at a clean end of stream.
func (r *Reader) ReadMessage() (*Message, error) {
	var contentLength int

	// Read headers
	for {
		line, err := r.r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if line == "" && contentLength == 0 {
					return nil, io.EOF
				}
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
		line = strings.TrimSpace(line)

		// Empty line marks end of headers
		if line == "" {
			break
		}

		if strings.HasPrefix(line, "Content-Length:") {
			lenStr := strings.TrimSpace(strings.TrimPrefix(line, "Content-Length:"))
			contentLength, err = strconv.Atoi(lenStr)
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length value %q: %w", lenStr, err)
			}
			if contentLength < 0 {
				return nil, fmt.Errorf("negative Content-Length: %d", contentLength)
			}
		}
		// Ignore other headers (Content-Type, etc.)
	}

	if contentLength == 0 {
		return nil, fmt.Errorf("missing or zero Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &msg, nil
}
