// Package evaluate scores a checkpoint log against ground truth answers.
package evaluate

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"mcqagent/internal/driver"
)

// GroundTruth is one labeled question.
type GroundTruth struct {
	QID    string `json:"qid"`
	Answer string `json:"answer"`
}

// ItemResult is the verdict for one labeled qid.
type ItemResult struct {
	QID      string
	Expected string
	Got      string
	Correct  bool
	Missing  bool
}

// Report aggregates verdicts over a whole run.
type Report struct {
	Items   []ItemResult
	Correct int
	Wrong   int
	Missing int
}

// Accuracy is correct over labeled, counting missing rows as wrong.
func (r Report) Accuracy() float64 {
	total := r.Correct + r.Wrong + r.Missing
	if total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(total)
}

// LoadGroundTruth reads a labeled answer file.
func LoadGroundTruth(path string) ([]GroundTruth, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ground truth: %w", err)
	}
	var truths []GroundTruth
	if err := json.Unmarshal(data, &truths); err != nil {
		return nil, fmt.Errorf("parsing ground truth %s: %w", path, err)
	}
	return truths, nil
}

// Evaluate compares the checkpoint log to the labels. Duplicate qids in
// the log resolve last-write-wins, matching consolidation; rows are
// sorted by qid.
func Evaluate(logPath string, truths []GroundTruth) (Report, error) {
	records, err := driver.ReadCheckpoints(logPath)
	if err != nil {
		return Report{}, err
	}

	predicted := make(map[string]string, len(records))
	for _, rec := range records {
		predicted[rec.QID] = rec.Answer
	}

	var report Report
	for _, truth := range truths {
		item := ItemResult{QID: truth.QID, Expected: truth.Answer}
		got, ok := predicted[truth.QID]
		switch {
		case !ok:
			item.Missing = true
			report.Missing++
		case got == truth.Answer:
			item.Got = got
			item.Correct = true
			report.Correct++
		default:
			item.Got = got
			report.Wrong++
		}
		report.Items = append(report.Items, item)
	}

	sort.Slice(report.Items, func(i, j int) bool {
		return report.Items[i].QID < report.Items[j].QID
	})
	return report, nil
}
