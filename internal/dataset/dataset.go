// Package dataset loads benchmark question files and normalizes their
// choice enumeration.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mcqagent/internal/answer"
)

// WorkItem is one multiple-choice question. Immutable once loaded; QID is
// the idempotence key for checkpointing.
type WorkItem struct {
	QID      string   `json:"qid"`
	Question string   `json:"question"`
	Choices  []string `json:"choices"`
}

// Load reads a question file. JSON is the native format; CSV is accepted
// for hand-built fixtures with columns qid,question,choice1..choiceN.
func Load(path string) ([]WorkItem, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSON(path)
	case ".csv":
		return loadCSV(path)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}
}

func loadJSON(path string) ([]WorkItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}

	var items []WorkItem
	if err := json.Unmarshal(data, &items); err != nil {
		// Some exports wrap the array in a data field.
		var wrapped struct {
			Data []WorkItem `json:"data"`
		}
		if werr := json.Unmarshal(data, &wrapped); werr != nil || wrapped.Data == nil {
			return nil, fmt.Errorf("parsing dataset %s: %w", path, err)
		}
		items = wrapped.Data
	}
	return items, nil
}

func loadCSV(path string) ([]WorkItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", path, err)
	}

	var items []WorkItem
	for i, row := range rows {
		if i == 0 && len(row) > 0 && strings.EqualFold(row[0], "qid") {
			continue
		}
		if len(row) < 2 {
			continue
		}
		item := WorkItem{QID: row[0], Question: row[1]}
		for _, c := range row[2:] {
			if strings.TrimSpace(c) != "" {
				item.Choices = append(item.Choices, c)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// Transform normalizes choice enumeration in place: choices that do not
// already carry an "A. " style prefix get one assigned by position, so
// letter extraction downstream always has something to match.
func Transform(items []WorkItem) []WorkItem {
	out := make([]WorkItem, len(items))
	for i, item := range items {
		out[i] = item
		out[i].Choices = make([]string, len(item.Choices))
		for j, choice := range item.Choices {
			trimmed := strings.TrimSpace(choice)
			if _, ok := answer.ChoiceLetter(trimmed); ok {
				out[i].Choices[j] = trimmed
				continue
			}
			out[i].Choices[j] = fmt.Sprintf("%c. %s", 'A'+j, trimmed)
		}
	}
	return out
}

// Save writes items as JSON, used to persist the transformed dataset.
func Save(path string, items []WorkItem) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing dataset %s: %w", path, err)
	}
	return nil
}
