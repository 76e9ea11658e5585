// Package driver runs the resumable batch loop: it pulls unprocessed
// questions, feeds them through the agent engine, and appends every
// outcome to an append-only checkpoint log that survives crashes, rate
// limits, and restarts.
package driver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"mcqagent/internal/logging"
)

// CheckpointRecord is one durable line of the checkpoint log.
type CheckpointRecord struct {
	QID       string  `json:"qid"`
	Answer    string  `json:"answer"`
	Category  string  `json:"category"`
	Reasoning string  `json:"reasoning"`
	TimeTaken float64 `json:"time_taken,omitempty"`
}

// CheckpointLog is the append-only NDJSON log. The log is the sole source
// of truth for which qids are done; at most one record per qid survives a
// valid run.
type CheckpointLog struct {
	path      string
	file      *os.File
	processed map[string]struct{}
}

// OpenCheckpointLog opens (or creates) the log in append mode and reads
// the existing records so resume knows what to skip.
func OpenCheckpointLog(path string) (*CheckpointLog, error) {
	records, err := ReadCheckpoints(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint log %s: %w", path, err)
	}

	processed := make(map[string]struct{}, len(records))
	for _, r := range records {
		processed[r.QID] = struct{}{}
	}
	return &CheckpointLog{path: path, file: f, processed: processed}, nil
}

// Processed reports whether a qid already has a record.
func (l *CheckpointLog) Processed(qid string) bool {
	_, ok := l.processed[qid]
	return ok
}

// Count returns the number of distinct recorded qids.
func (l *CheckpointLog) Count() int {
	return len(l.processed)
}

// Append writes one record and fsyncs it immediately. A crash after
// Append loses nothing; a crash before it loses only the in-flight item.
func (l *CheckpointLog) Append(rec CheckpointRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding checkpoint record: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending checkpoint record: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("syncing checkpoint log: %w", err)
	}
	l.processed[rec.QID] = struct{}{}
	return nil
}

// Path returns the log's file path.
func (l *CheckpointLog) Path() string {
	return l.path
}

// Close closes the underlying file.
func (l *CheckpointLog) Close() error {
	return l.file.Close()
}

// ReadCheckpoints parses a checkpoint log. Malformed lines are skipped,
// never fatal; a missing file is an empty log.
func ReadCheckpoints(path string) ([]CheckpointRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening checkpoint log %s: %w", path, err)
	}
	defer f.Close()

	log := logging.Get(logging.CategoryDriver)
	var records []CheckpointRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec CheckpointRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.QID == "" {
			log.Warnw("skipping malformed checkpoint line", "path", path, "line", lineNo)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading checkpoint log %s: %w", path, err)
	}
	return records, nil
}
