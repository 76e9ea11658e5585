package driver

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
)

// Consolidate rebuilds the final answer table from the checkpoint log:
// one {qid, answer} row per qid, sorted by qid for deterministic output.
// If a qid somehow appears twice the later record wins. Returns the row
// count.
func Consolidate(logPath, outPath string) (int, error) {
	records, err := ReadCheckpoints(logPath)
	if err != nil {
		return 0, err
	}

	latest := make(map[string]string, len(records))
	for _, rec := range records {
		latest[rec.QID] = rec.Answer
	}

	qids := make([]string, 0, len(latest))
	for qid := range latest {
		qids = append(qids, qid)
	}
	sort.Strings(qids)

	f, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("creating output %s: %w", outPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"qid", "answer"}); err != nil {
		return 0, fmt.Errorf("writing output header: %w", err)
	}
	for _, qid := range qids {
		if err := w.Write([]string{qid, latest[qid]}); err != nil {
			return 0, fmt.Errorf("writing output row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flushing output %s: %w", outPath, err)
	}
	return len(qids), nil
}
