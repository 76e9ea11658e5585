package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"mcqagent/internal/llm"
	"mcqagent/internal/logging"
)

// classifierResponse is the JSON object the small model is asked to
// return. Free-text responses that fail to parse fall back to keyword
// scanning.
type classifierResponse struct {
	Type          string `json:"type"`
	ToxicDetected string `json:"toxic_detected"`
}

// toxicLetterPattern accepts one uppercase letter at the start of the
// classifier's toxic_detected value.
var toxicLetterPattern = regexp.MustCompile(`^\s*([A-Z])`)

// Router classifies a question into a category and, for clear-cut
// refusal questions, short-circuits the answer directly.
type Router struct {
	client llm.Client
}

// NewRouter creates a router over the generation capability.
func NewRouter(client llm.Client) *Router {
	return &Router{client: client}
}

// Route classifies the state's question in place. On a toxic
// classification that names a specific choice letter, the answer is set
// directly and the toxic strategy is skipped. Classification failures
// other than rate limiting are never fatal: the question degrades to the
// residual rag category.
func (r *Router) Route(ctx context.Context, s *State) error {
	log := logging.Get(logging.CategoryRouter)

	response, err := r.client.ClassifyQuestion(ctx, classificationPrompt(s.Question, s.Choices))
	if err != nil {
		if llm.IsRateLimit(err) {
			return err
		}
		// Generic classifier failure: fall through with an empty
		// response, which lands on the rag fallback below.
		log.Warnw("classification call failed", "qid", s.QID, "error", err)
		response = ""
	}

	var parsed classifierResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(response)), &parsed); err == nil && parsed.Type != "" {
		s.Category = normalizeCategory(parsed.Type)

		if s.Category == CategoryToxic && parsed.ToxicDetected != "" {
			if m := toxicLetterPattern.FindStringSubmatch(parsed.ToxicDetected); m != nil {
				s.Answer = m[1]
				s.Reasoning = "Toxic: classifier identified refusal choice " + m[1]
				log.Infow("toxic short-circuit", "qid", s.QID, "answer", s.Answer)
				return nil
			}
		}

		log.Debugw("classified", "qid", s.QID, "category", s.Category)
		return nil
	}

	// ClassificationParseFailure: keyword scan of the raw response.
	s.Category = keywordCategory(response)
	log.Debugw("classified by keyword fallback", "qid", s.QID, "category", s.Category)
	return nil
}

// normalizeCategory maps a classifier type value onto a known category.
// Anything outside the fixed set is treated as rag, the residual
// knowledge-lookup strategy.
func normalizeCategory(raw string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(raw))) {
	case CategoryMath:
		return CategoryMath
	case CategoryReading:
		return CategoryReading
	case CategoryToxic:
		return CategoryToxic
	case CategoryRAG:
		return CategoryRAG
	default:
		return CategoryRAG
	}
}

// keywordCategory scans a free-text response for one of the category
// names, defaulting to rag.
func keywordCategory(response string) Category {
	upper := strings.ToUpper(response)
	switch {
	case strings.Contains(upper, "TOXIC"):
		return CategoryToxic
	case strings.Contains(upper, "MATH"):
		return CategoryMath
	case strings.Contains(upper, "READING"):
		return CategoryReading
	default:
		return CategoryRAG
	}
}

// classificationPrompt asks the small model to sort the question into one
// of the four strategy groups.
func classificationPrompt(question string, choices []string) string {
	return fmt.Sprintf(`Bạn là một trợ lý phân loại câu hỏi. Hãy phân loại câu hỏi sau vào MỘT trong các nhóm:

- TOXIC: khi các đáp án có ít nhất một đáp án kiểu từ chối trả lời như "tôi không thể trả lời", "tôi không biết", "không thể cung cấp", "nằm ngoài phạm vi trả lời".
- MATH: câu hỏi yêu cầu tính toán, giải toán, giải lý, bài toán đếm, tổ hợp, thống kê, hoặc có thể giải bằng lập trình.
- READING: câu hỏi cung cấp sẵn một đoạn văn ("Đoạn thông tin:", "Đoạn văn:") và yêu cầu đọc hiểu.
- RAG: câu hỏi cần tra cứu kiến thức bên ngoài (lịch sử, địa lý, văn hóa, pháp luật), hoặc không thuộc ba loại trên.

Câu hỏi:
%s

Các đáp án:
%s

Trả về một đối tượng JSON duy nhất dạng {"type": "TOXIC|MATH|READING|RAG", "toxic_detected": "<chữ cái đáp án từ chối, nếu type là TOXIC>"}.`,
		question, strings.Join(choices, "\n"))
}
