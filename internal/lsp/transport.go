package lsp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lspdock/lspdock/internal/logging"
)

// Message is a JSON-RPC 2.0 envelope. A request has ID and Method, a
// notification only Method, a response ID and Result or Error.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

type ResponseError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("request failed: %s (code %d)", e.Message, e.Code)
}

// WriteMessage frames and writes a single message to the server.
func WriteMessage(w io.Writer, msg *Message) error {
	msg.JSONRPC = "2.0"
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(payload)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}

// ReadMessage reads one framed message from the server.
func ReadMessage(r *bufio.Reader) (*Message, []byte, error) {
	contentLength := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break // end of headers
		}
		if name, value, ok := strings.Cut(line, ":"); ok {
			if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
				contentLength, err = strconv.Atoi(strings.TrimSpace(value))
				if err != nil {
					return nil, nil, fmt.Errorf("invalid Content-Length: %w", err)
				}
			}
		}
	}
	if contentLength < 0 {
		return nil, nil, fmt.Errorf("missing Content-Length header")
	}

	payload := make([]byte, contentLength)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, nil, fmt.Errorf("failed to read payload: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &msg, payload, nil
}

// messageLoop reads from the server until EOF, dispatching responses,
// server requests, and notifications.
func (c *Client) messageLoop() {
	defer logging.RecoverPanic("lsp-"+c.name+"-reader", nil)

	for {
		msg, payload, err := ReadMessage(c.stdout)
		if err != nil {
			if err != io.EOF && !c.closed.Load() {
				logging.Debug("LSP message loop terminated", "server", c.name, "error", err)
			}
			c.failPending(err)
			return
		}
		logging.WriteLSPMessage(c.name, "in", payload)

		switch {
		case msg.ID != nil && msg.Method != "":
			go c.handleServerRequest(msg)
		case msg.Method != "":
			c.handleNotification(msg)
		case msg.ID != nil:
			c.deliverResponse(msg)
		}
	}
}

func (c *Client) deliverResponse(msg *Message) {
	c.pendingMu.Lock()
	ch, ok := c.pending[*msg.ID]
	if ok {
		delete(c.pending, *msg.ID)
	}
	c.pendingMu.Unlock()

	if ok {
		ch <- msg
	} else {
		logging.Debug("Received response for unknown request", "server", c.name, "id", *msg.ID)
	}
}

// failPending unblocks every caller waiting on a response after the
// server side of the connection is gone.
func (c *Client) failPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		ch <- &Message{ID: &id, Error: &ResponseError{Code: -32700, Message: fmt.Sprintf("connection lost: %v", err)}}
		delete(c.pending, id)
	}
}
