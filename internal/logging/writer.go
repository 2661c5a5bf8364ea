package logging

import (
	"bytes"
	"sync"
	"time"

	"github.com/go-logfmt/logfmt"
	"github.com/google/uuid"
)

// Attr is a single structured attribute attached to a log message.
type Attr struct {
	Key   string
	Value string
}

// LogMessage is a parsed log record as seen by subscribers.
type LogMessage struct {
	ID         string
	Time       time.Time
	Level      string
	Message    string
	Persist    bool
	Attributes []Attr
}

const maxMessages = 1000

var (
	mu          sync.Mutex
	messages    []LogMessage
	subscribers []chan LogMessage
)

// List returns a snapshot of the retained log messages.
func List() []LogMessage {
	mu.Lock()
	defer mu.Unlock()
	out := make([]LogMessage, len(messages))
	copy(out, messages)
	return out
}

// Subscribe returns a channel receiving every log message written after
// the call. The channel is closed when done is closed.
func Subscribe(done <-chan struct{}) <-chan LogMessage {
	ch := make(chan LogMessage, 100)
	mu.Lock()
	subscribers = append(subscribers, ch)
	mu.Unlock()

	go func() {
		<-done
		mu.Lock()
		for i, sub := range subscribers {
			if sub == ch {
				subscribers = append(subscribers[:i], subscribers[i+1:]...)
				break
			}
		}
		mu.Unlock()
		close(ch)
	}()
	return ch
}

func publish(msg LogMessage) {
	mu.Lock()
	messages = append(messages, msg)
	if len(messages) > maxMessages {
		messages = messages[len(messages)-maxMessages:]
	}
	subs := make([]chan LogMessage, len(subscribers))
	copy(subs, subscribers)
	mu.Unlock()

	for _, sub := range subs {
		select {
		case sub <- msg:
		default: // drop rather than block the logger
		}
	}
}

// writer parses the logfmt stream emitted by slog's TextHandler and
// republishes each record to subscribers.
type writer struct{}

func (w *writer) Write(p []byte) (int, error) {
	d := logfmt.NewDecoder(bytes.NewReader(p))
	for d.ScanRecord() {
		msg := LogMessage{ID: uuid.NewString()}
		for d.ScanKeyval() {
			key := string(d.Key())
			value := string(d.Value())
			switch key {
			case "time":
				if parsed, err := time.Parse(time.RFC3339, value); err == nil {
					msg.Time = parsed
				}
			case "level":
				msg.Level = value
			case "msg":
				msg.Message = value
			case persistKeyArg:
				msg.Persist = true
			default:
				msg.Attributes = append(msg.Attributes, Attr{Key: key, Value: value})
			}
		}
		publish(msg)
	}
	return len(p), nil
}

// NewWriter returns an io.Writer suitable as the sink for slog's
// TextHandler.
func NewWriter() *writer {
	return &writer{}
}
