// Package behaviorlog stores session behavior snapshots as an append-only
// JSON Lines file.
package behaviorlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/HanTheDev/policyguard/internal/models"
)

// maxLineSize bounds a single log line when reading back.
const maxLineSize = 1 << 20

var ErrNoLog = errors.New("behavior log does not exist")

type Log struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Log {
	return &Log{path: path}
}

func (l *Log) Path() string {
	return l.path
}

// Append writes entry as one line. The line is handed to the kernel in a
// single write on an O_APPEND descriptor while holding the mutex, so
// concurrent appends never interleave.
func (l *Log) Append(entry *models.BehaviorLogEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open behavior log: %w", err)
	}

	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to append entry: %w", err)
	}

	return f.Close()
}

// ReadAll returns every well-formed entry in file order. Lines that do not
// decode, or that lack a session id, timestamp or full sample, are skipped.
//
// Reads take no lock. Appends are single writes, so a line caught mid-write
// fails to decode and is skipped like any other malformed line.
func (l *Log) ReadAll() ([]models.BehaviorLogEntry, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoLog
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open behavior log: %w", err)
	}
	defer f.Close()

	var entries []models.BehaviorLogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var entry models.BehaviorLogEntry
		if err := json.Unmarshal(raw, &entry); err != nil || !wellFormed(&entry) {
			log.Printf("Skipping malformed behavior log line %d", lineNo)
			continue
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("failed to read behavior log: %w", err)
	}

	return entries, nil
}

func wellFormed(e *models.BehaviorLogEntry) bool {
	return e.SessionID != "" && !e.Timestamp.IsZero() && len(e.Sample) == models.SampleSize
}

// Recent returns up to n entries, most recent first.
func (l *Log) Recent(n int) ([]models.BehaviorLogEntry, error) {
	entries, err := l.ReadAll()
	if err != nil {
		return nil, err
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}

	recent := make([]models.BehaviorLogEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		recent = append(recent, entries[i])
	}

	return recent, nil
}
