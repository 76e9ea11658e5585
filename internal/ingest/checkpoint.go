package ingest

import (
	"encoding/json"
	"fmt"
	"os"
)

// Checkpoint tracks which chunks are already embedded, so re-running the
// pipeline after a crash or quota halt never re-embeds or double-pays.
type Checkpoint struct {
	EmbeddedIDs   []string `json:"embedded_ids"`
	TotalEmbedded int      `json:"total_embedded"`

	path string
	ids  map[string]struct{}
}

// LoadCheckpoint reads the checkpoint file; a missing file is an empty
// checkpoint.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	cp := &Checkpoint{path: path, ids: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cp, nil
		}
		return nil, fmt.Errorf("reading embed checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("parsing embed checkpoint %s: %w", path, err)
	}
	for _, id := range cp.EmbeddedIDs {
		cp.ids[id] = struct{}{}
	}
	return cp, nil
}

// Contains reports whether a chunk id is already embedded.
func (c *Checkpoint) Contains(chunkID string) bool {
	_, ok := c.ids[chunkID]
	return ok
}

// Add records a newly embedded chunk in memory; Save persists it.
func (c *Checkpoint) Add(chunkID string) {
	if _, ok := c.ids[chunkID]; ok {
		return
	}
	c.ids[chunkID] = struct{}{}
	c.EmbeddedIDs = append(c.EmbeddedIDs, chunkID)
	c.TotalEmbedded = len(c.EmbeddedIDs)
}

// Save writes the checkpoint atomically via a temp-file rename.
func (c *Checkpoint) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding embed checkpoint: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing embed checkpoint: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replacing embed checkpoint: %w", err)
	}
	return nil
}
