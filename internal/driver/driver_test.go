package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"mcqagent/internal/agent"
	"mcqagent/internal/config"
	"mcqagent/internal/dataset"
	"mcqagent/internal/llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePipeline struct {
	process func(ctx context.Context, s *agent.State) error
	calls   []string
}

func (f *fakePipeline) Process(ctx context.Context, s *agent.State) error {
	f.calls = append(f.calls, s.QID)
	return f.process(ctx, s)
}

func answerA(ctx context.Context, s *agent.State) error {
	s.Category = agent.CategoryRAG
	s.Answer = "A"
	s.Reasoning = "test"
	return nil
}

type fakeStop struct {
	after   int
	seen    int
	cleared bool
}

func (f *fakeStop) Requested() bool {
	f.seen++
	return f.seen > f.after
}

func (f *fakeStop) Clear() error {
	f.cleared = true
	return nil
}

func testDriver(t *testing.T, pipeline Pipeline, stop StopSignal) (*Driver, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig().Driver
	d := New(pipeline, stop, cfg, dir, 2*time.Minute)
	return d, dir
}

func items(qids ...string) []dataset.WorkItem {
	out := make([]dataset.WorkItem, len(qids))
	for i, q := range qids {
		out[i] = dataset.WorkItem{QID: q, Question: "q", Choices: []string{"A. x", "B. y"}}
	}
	return out
}

func TestRunProcessesAllItems(t *testing.T) {
	pipeline := &fakePipeline{process: answerA}
	d, dir := testDriver(t, pipeline, nil)

	logPath := filepath.Join(dir, "checkpoint.jsonl")
	log, err := OpenCheckpointLog(logPath)
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, d.Run(context.Background(), items("q2", "q1", "q3"), log))
	require.Equal(t, []string{"q2", "q1", "q3"}, pipeline.calls)

	out, err := os.ReadFile(filepath.Join(dir, "submission.csv"))
	require.NoError(t, err)
	require.Equal(t, "qid,answer\nq1,A\nq2,A\nq3,A\n", string(out))
}

func TestRunIdempotentResume(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "checkpoint.jsonl")
	cfg := config.DefaultConfig().Driver
	batch := items("q1", "q2", "q3")

	first := &fakePipeline{process: answerA}
	log, err := OpenCheckpointLog(logPath)
	require.NoError(t, err)
	require.NoError(t, New(first, nil, cfg, dir, time.Minute).Run(context.Background(), batch, log))
	require.NoError(t, log.Close())

	firstOut, err := os.ReadFile(filepath.Join(dir, "submission.csv"))
	require.NoError(t, err)

	// Second run against the same log must process the complement: nothing.
	second := &fakePipeline{process: answerA}
	log, err = OpenCheckpointLog(logPath)
	require.NoError(t, err)
	require.NoError(t, New(second, nil, cfg, dir, time.Minute).Run(context.Background(), batch, log))
	require.NoError(t, log.Close())
	require.Empty(t, second.calls)

	secondOut, err := os.ReadFile(filepath.Join(dir, "submission.csv"))
	require.NoError(t, err)
	if diff := cmp.Diff(string(firstOut), string(secondOut)); diff != "" {
		t.Fatalf("consolidated output changed across resume (-first +second):\n%s", diff)
	}

	records, err := ReadCheckpoints(logPath)
	require.NoError(t, err)
	require.Len(t, records, 3)
}

func TestRunFallbackRecordOnGenericFailure(t *testing.T) {
	pipeline := &fakePipeline{process: func(ctx context.Context, s *agent.State) error {
		if s.QID == "q2" {
			return fmt.Errorf("upstream 500")
		}
		return answerA(ctx, s)
	}}
	d, dir := testDriver(t, pipeline, nil)

	log, err := OpenCheckpointLog(filepath.Join(dir, "checkpoint.jsonl"))
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, d.Run(context.Background(), items("q1", "q2", "q3"), log))

	records, err := ReadCheckpoints(log.Path())
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "C", records[1].Answer)
	require.Equal(t, "error", records[1].Category)
	require.Contains(t, records[1].Reasoning, "upstream 500")
}

func TestRunManualRateLimitHalts(t *testing.T) {
	pipeline := &fakePipeline{process: func(ctx context.Context, s *agent.State) error {
		if s.QID == "q2" {
			return &llm.RateLimitError{Provider: "vnpt", StatusCode: 429}
		}
		return answerA(ctx, s)
	}}
	d, dir := testDriver(t, pipeline, nil)

	log, err := OpenCheckpointLog(filepath.Join(dir, "checkpoint.jsonl"))
	require.NoError(t, err)
	defer log.Close()

	err = d.Run(context.Background(), items("q1", "q2", "q3"), log)
	require.ErrorIs(t, err, ErrHalted)

	// q1 is logged, q2 and q3 are not; the emergency output reflects q1.
	records, rerr := ReadCheckpoints(log.Path())
	require.NoError(t, rerr)
	require.Len(t, records, 1)
	require.Equal(t, "q1", records[0].QID)

	out, rerr := os.ReadFile(filepath.Join(dir, "submission_emergency.csv"))
	require.NoError(t, rerr)
	require.Equal(t, "qid,answer\nq1,A\n", string(out))
}

func TestRunAutoRateLimitRetriesSameItem(t *testing.T) {
	attempts := 0
	pipeline := &fakePipeline{process: func(ctx context.Context, s *agent.State) error {
		if s.QID == "q1" {
			attempts++
			if attempts == 1 {
				return &llm.RateLimitError{Provider: "vnpt", StatusCode: 429}
			}
		}
		return answerA(ctx, s)
	}}

	dir := t.TempDir()
	cfg := config.DefaultConfig().Driver
	cfg.RateLimitPolicy = config.PolicyAuto
	d := New(pipeline, nil, cfg, dir, 2*time.Minute)

	var slept []time.Duration
	d.now = func() time.Time { return time.Date(2025, 7, 12, 10, 45, 0, 0, time.UTC) }
	d.sleep = func(ctx context.Context, dur time.Duration) error {
		slept = append(slept, dur)
		return nil
	}

	log, err := OpenCheckpointLog(filepath.Join(dir, "checkpoint.jsonl"))
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, d.Run(context.Background(), items("q1", "q2"), log))

	// 10:45 -> 11:00 plus the 2m buffer.
	require.Equal(t, []time.Duration{17 * time.Minute}, slept)
	require.Equal(t, []string{"q1", "q1", "q2"}, pipeline.calls)

	records, err := ReadCheckpoints(log.Path())
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestRunStopSignalHonored(t *testing.T) {
	pipeline := &fakePipeline{process: answerA}
	stop := &fakeStop{after: 1}
	d, dir := testDriver(t, pipeline, stop)

	log, err := OpenCheckpointLog(filepath.Join(dir, "checkpoint.jsonl"))
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, d.Run(context.Background(), items("q1", "q2", "q3"), log))

	// One item before the stop bit flips, then the signal is consumed
	// and already-logged work is still consolidated.
	require.Equal(t, []string{"q1"}, pipeline.calls)
	require.True(t, stop.cleared)

	out, err := os.ReadFile(filepath.Join(dir, "submission.csv"))
	require.NoError(t, err)
	require.Equal(t, "qid,answer\nq1,A\n", string(out))
}

func TestRunContextCancellation(t *testing.T) {
	pipeline := &fakePipeline{process: answerA}
	d, dir := testDriver(t, pipeline, nil)

	log, err := OpenCheckpointLog(filepath.Join(dir, "checkpoint.jsonl"))
	require.NoError(t, err)
	defer log.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, d.Run(ctx, items("q1"), log), context.Canceled)
	require.Empty(t, pipeline.calls)
}

func TestCheckpointLogSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.jsonl")
	content := `{"qid":"q1","answer":"A","category":"rag","reasoning":"ok"}
not json at all
{"answer":"B"}
{"qid":"q2","answer":"B","category":"math","reasoning":"ok"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := ReadCheckpoints(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "q1", records[0].QID)
	require.Equal(t, "q2", records[1].QID)

	log, err := OpenCheckpointLog(path)
	require.NoError(t, err)
	defer log.Close()
	require.True(t, log.Processed("q1"))
	require.True(t, log.Processed("q2"))
	require.False(t, log.Processed("q3"))
}

func TestConsolidateLastWriteWins(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "checkpoint.jsonl")
	content := `{"qid":"q2","answer":"A","category":"rag","reasoning":""}
{"qid":"q1","answer":"B","category":"math","reasoning":""}
{"qid":"q2","answer":"D","category":"rag","reasoning":"rewritten"}
`
	require.NoError(t, os.WriteFile(logPath, []byte(content), 0o644))

	outPath := filepath.Join(dir, "submission.csv")
	rows, err := Consolidate(logPath, outPath)
	require.NoError(t, err)
	require.Equal(t, 2, rows)

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, "qid,answer\nq1,B\nq2,D\n", string(out))
}

func TestConsolidateMissingLog(t *testing.T) {
	dir := t.TempDir()
	rows, err := Consolidate(filepath.Join(dir, "missing.jsonl"), filepath.Join(dir, "out.csv"))
	require.NoError(t, err)
	require.Zero(t, rows)
}

func TestStopWatcherSentinelLifecycle(t *testing.T) {
	dir := t.TempDir()
	sentinel := filepath.Join(dir, "STOP_AUTO")

	w, err := NewStopWatcher(sentinel)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	require.False(t, w.Requested())

	require.NoError(t, os.WriteFile(sentinel, nil, 0o644))
	require.Eventually(t, w.Requested, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Clear())
	_, err = os.Stat(sentinel)
	require.True(t, os.IsNotExist(err))
	require.False(t, w.Requested())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestStopWatcherDetectsPreexistingSentinel(t *testing.T) {
	dir := t.TempDir()
	sentinel := filepath.Join(dir, "STOP_AUTO")
	require.NoError(t, os.WriteFile(sentinel, nil, 0o644))

	w, err := NewStopWatcher(sentinel)
	require.NoError(t, err)
	defer w.Close()

	require.True(t, w.Requested())
	require.NoError(t, w.Clear())
}
