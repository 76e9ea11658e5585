package evaluate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inference_log.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEvaluate(t *testing.T) {
	logPath := writeLog(t, `{"qid":"q1","answer":"A","category":"rag","reasoning":""}
{"qid":"q3","answer":"B","category":"math","reasoning":""}
{"qid":"q3","answer":"C","category":"math","reasoning":"rewritten"}
`)
	truths := []GroundTruth{
		{QID: "q1", Answer: "A"},
		{QID: "q2", Answer: "D"},
		{QID: "q3", Answer: "B"},
	}

	report, err := Evaluate(logPath, truths)
	require.NoError(t, err)

	require.Equal(t, 1, report.Correct)
	require.Equal(t, 1, report.Wrong) // q3: last record wins and it is wrong
	require.Equal(t, 1, report.Missing)
	require.InDelta(t, 1.0/3.0, report.Accuracy(), 1e-9)

	require.Len(t, report.Items, 3)
	require.Equal(t, "q1", report.Items[0].QID)
	require.True(t, report.Items[0].Correct)
	require.True(t, report.Items[1].Missing)
	require.Equal(t, "C", report.Items[2].Got)
}

func TestEvaluateEmptyLabels(t *testing.T) {
	logPath := writeLog(t, "")
	report, err := Evaluate(logPath, nil)
	require.NoError(t, err)
	require.Zero(t, report.Accuracy())
}

func TestLoadGroundTruth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truth.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"qid":"q1","answer":"A"}]`), 0o644))

	truths, err := LoadGroundTruth(path)
	require.NoError(t, err)
	require.Equal(t, []GroundTruth{{QID: "q1", Answer: "A"}}, truths)
}
