package solver

import (
	"fmt"
	"strings"
)

func formatChoices(choices []string) string {
	return strings.Join(choices, "\n")
}

func codeGenPrompt(question string, choices []string) string {
	return fmt.Sprintf(`Bạn là một lập trình viên Go. Hãy viết một chương trình Go hoàn chỉnh để giải bài toán sau và in kết quả cuối cùng ra màn hình bằng fmt.Println.

Câu hỏi: %s

Các lựa chọn:
%s

Yêu cầu:
- Chỉ trả về một khối mã duy nhất trong cặp dấu `+"```go ... ```"+`.
- Chương trình phải tự chạy được, không nhận đầu vào.
- In ra kết quả tính toán cuối cùng, không in gì khác.`, question, formatChoices(choices))
}

func repairPrompt(question string, choices []string, code, errOutput string) string {
	return fmt.Sprintf(`Chương trình Go sau đây bị lỗi khi chạy. Hãy sửa lỗi và trả về chương trình hoàn chỉnh đã sửa trong một khối mã `+"```go ... ```"+` duy nhất.

Câu hỏi gốc: %s

Các lựa chọn:
%s

Mã hiện tại:
`+"```go\n%s\n```"+`

Lỗi khi chạy:
%s`, question, formatChoices(choices), code, errOutput)
}

func selectionPrompt(question string, choices []string, execOutput string) string {
	return fmt.Sprintf(`Dựa vào kết quả thực thi chương trình, hãy chọn đáp án đúng cho câu hỏi trắc nghiệm sau. Chỉ trả lời bằng một chữ cái duy nhất (A, B, C, D...).

Câu hỏi: %s

Các lựa chọn:
%s

Kết quả thực thi:
%s

Đáp án:`, question, formatChoices(choices), execOutput)
}

func groundedPrompt(question string, choices []string, contextText string) string {
	return fmt.Sprintf(`Dựa vào ngữ cảnh được cung cấp, hãy chọn đáp án đúng cho câu hỏi trắc nghiệm sau. Chỉ trả lời bằng một chữ cái duy nhất (A, B, C, D...). Nếu ngữ cảnh không đủ thông tin, hãy chọn đáp án hợp lý nhất.

Ngữ cảnh:
%s

Câu hỏi: %s

Các lựa chọn:
%s

Đáp án:`, contextText, question, formatChoices(choices))
}

func readingPrompt(question string, choices []string) string {
	return fmt.Sprintf(`Hãy đọc kỹ đoạn văn trong câu hỏi và chọn đáp án đúng cho câu hỏi trắc nghiệm sau. Chỉ trả lời bằng một chữ cái duy nhất (A, B, C, D...).

Câu hỏi: %s

Các lựa chọn:
%s

Đáp án:`, question, formatChoices(choices))
}
