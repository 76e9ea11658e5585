package agent

import (
	"context"
	"errors"
	"testing"

	"mcqagent/internal/llm"

	"github.com/stretchr/testify/require"
)

// fakeClassifier implements llm.Client for router tests; only the
// classification method is exercised.
type fakeClassifier struct {
	response string
	err      error
}

func (f *fakeClassifier) ClassifyQuestion(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}
func (f *fakeClassifier) GenerateMathCode(ctx context.Context, prompt string) (string, error) {
	return "", nil
}
func (f *fakeClassifier) SelectMathAnswer(ctx context.Context, prompt string) (string, error) {
	return "", nil
}
func (f *fakeClassifier) GenerateGroundedAnswer(ctx context.Context, prompt string) (string, error) {
	return "", nil
}
func (f *fakeClassifier) GenerateReadingAnswer(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

func routeWith(t *testing.T, response string, err error) *State {
	t.Helper()
	r := NewRouter(&fakeClassifier{response: response, err: err})
	s := NewState("q1", "question?", []string{"A. 42", "B. I cannot answer this question"})
	require.NoError(t, r.Route(context.Background(), s))
	return s
}

func TestRouteJSONClassification(t *testing.T) {
	s := routeWith(t, `{"type":"MATH"}`, nil)
	require.Equal(t, CategoryMath, s.Category)
	require.False(t, s.Answered())
}

func TestRouteToxicShortCircuit(t *testing.T) {
	s := routeWith(t, `{"type":"TOXIC","toxic_detected":"B"}`, nil)
	require.Equal(t, CategoryToxic, s.Category)
	require.Equal(t, "B", s.Answer)
}

func TestRouteToxicWithoutLetterFallsThrough(t *testing.T) {
	s := routeWith(t, `{"type":"TOXIC","toxic_detected":"maybe choice two?"}`, nil)
	require.Equal(t, CategoryToxic, s.Category)
	require.False(t, s.Answered(), "must fall through to the toxic strategy")
}

func TestRouteKeywordFallback(t *testing.T) {
	s := routeWith(t, "This clearly looks like a MATH problem to me", nil)
	require.Equal(t, CategoryMath, s.Category)
}

func TestRouteUnparsableDefaultsToRAG(t *testing.T) {
	s := routeWith(t, "no category mentioned at all", nil)
	require.Equal(t, CategoryRAG, s.Category)
}

func TestRouteUnknownTypeIsRAG(t *testing.T) {
	s := routeWith(t, `{"type":"TRIVIA"}`, nil)
	require.Equal(t, CategoryRAG, s.Category)
}

func TestRouteGenericErrorDegradesToRAG(t *testing.T) {
	s := routeWith(t, "", errors.New("connection reset"))
	require.Equal(t, CategoryRAG, s.Category)
}

func TestRoutePropagatesRateLimit(t *testing.T) {
	r := NewRouter(&fakeClassifier{err: &llm.RateLimitError{Provider: "vnpt", StatusCode: 429}})
	s := NewState("q1", "question?", nil)

	err := r.Route(context.Background(), s)
	require.Error(t, err)
	require.True(t, llm.IsRateLimit(err))
}

func TestDispatchUnknownCategoryFallsBackToRAG(t *testing.T) {
	d := NewDispatcher()
	var solved Category
	d.Register(CategoryRAG, solverFunc(func(ctx context.Context, s *State) error {
		solved = s.Category
		s.Answer = "A"
		return nil
	}))

	s := NewState("q1", "question?", nil)
	s.Category = "poetry"
	require.NoError(t, d.Dispatch(context.Background(), s))
	require.Equal(t, CategoryRAG, solved)
}

func TestDispatchSkipsAnsweredState(t *testing.T) {
	d := NewDispatcher()
	d.Register(CategoryToxic, solverFunc(func(ctx context.Context, s *State) error {
		t.Fatal("solver must not run for short-circuited states")
		return nil
	}))

	s := NewState("q1", "question?", nil)
	s.Category = CategoryToxic
	s.Answer = "B"
	require.NoError(t, d.Dispatch(context.Background(), s))
	require.Equal(t, "B", s.Answer)
}

type solverFunc func(ctx context.Context, s *State) error

func (f solverFunc) Solve(ctx context.Context, s *State) error { return f(ctx, s) }
