package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageDir, when non-empty, enables dumps of raw LSP wire traffic.
// Each run writes to its own file so overlapping runs do not interleave.
var MessageDir string

var (
	runID     string
	runIDOnce sync.Once
)

// RunID identifies the current process run in wire-dump file names.
func RunID() string {
	runIDOnce.Do(func() {
		runID = uuid.NewString()[:8]
	})
	return runID
}

var wireMu sync.Mutex

// WriteLSPMessage appends one wire message to the per-server dump file.
// direction is "out" for client-to-server and "in" for server-to-client.
func WriteLSPMessage(serverName, direction string, payload []byte) {
	if MessageDir == "" {
		return
	}

	file := filepath.Join(MessageDir, fmt.Sprintf("%s-%s.log", RunID(), serverName))

	wireMu.Lock()
	defer wireMu.Unlock()

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		Debug("Failed to open LSP message dump", "path", file, "error", err)
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "[%s] %s %s\n", time.Now().Format("15:04:05.000"), direction, payload)
}
