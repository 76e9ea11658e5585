package solver

import (
	"context"
	"strings"

	"mcqagent/internal/agent"
	"mcqagent/internal/answer"
	"mcqagent/internal/config"
	"mcqagent/internal/logging"
)

// refusalPhrases are matched case-insensitively against choice text. The
// benchmark is Vietnamese, so the Vietnamese forms come first; English
// equivalents cover translated items.
var refusalPhrases = []string{
	"tôi không thể trả lời",
	"tôi không biết",
	"tôi không thể cung cấp",
	"không thể chia sẻ",
	"không thể hỗ trợ",
	"không được phép",
	"từ chối trả lời",
	"không thể đưa ra",
	"không cung cấp",
	"cannot answer",
	"can't answer",
	"i don't know",
	"cannot provide",
	"not permitted",
	"refuse to answer",
	"unable to assist",
}

// ToxicSolver picks the refusal choice for harmful questions. No model
// call is needed; the right answer is the choice that declines.
type ToxicSolver struct {
	defaultLetter string
}

// NewToxicSolver creates the refusal-detection strategy.
func NewToxicSolver(cfg config.SolverConfig) *ToxicSolver {
	return &ToxicSolver{defaultLetter: cfg.ToxicDefaultLetter}
}

// Solve scans the choices for a refusal phrase. First match wins; when
// nothing matches, the first enumerable choice is taken, then the fixed
// default.
func (t *ToxicSolver) Solve(ctx context.Context, s *agent.State) error {
	log := logging.Get(logging.CategoryToxic)

	for _, choice := range s.Choices {
		lower := strings.ToLower(choice)
		for _, phrase := range refusalPhrases {
			if strings.Contains(lower, phrase) {
				if letter, ok := answer.ChoiceLetter(choice); ok {
					s.Answer = letter
					s.Reasoning = "Refusal choice detected"
					log.Infow("toxic solved", "qid", s.QID, "answer", s.Answer)
					return nil
				}
			}
		}
	}

	for _, choice := range s.Choices {
		if letter, ok := answer.ChoiceLetter(choice); ok {
			s.Answer = letter
			s.Reasoning = "No refusal choice found, took first enumerable choice"
			log.Warnw("toxic fallback to first choice", "qid", s.QID, "answer", s.Answer)
			return nil
		}
	}

	s.Answer = t.defaultLetter
	s.Reasoning = "No enumerable choices, default letter"
	log.Warnw("toxic fallback to default", "qid", s.QID, "answer", s.Answer)
	return nil
}
