package retrieval

import (
	"hash/fnv"
	"strings"
	"unicode/utf8"

	"mcqagent/internal/config"
)

// AssembleContext formats fused candidates into grounding context. Near
// duplicates are collapsed by a fingerprint of the content prefix, each
// surviving document gets a citation header from its payload metadata,
// and the running total is capped at the configured character budget,
// truncating the last included document if needed.
func AssembleContext(results []FusedResult, cfg config.RetrievalConfig) string {
	var sections []string
	seen := make(map[uint64]bool)
	total := 0

	for _, r := range results {
		content := strings.TrimSpace(r.Candidate.Payload.Content)
		if content == "" {
			continue
		}

		fp := contentFingerprint(content, cfg.DedupPrefixLen)
		if seen[fp] {
			continue
		}
		seen[fp] = true

		if total+len(content) > cfg.ContextBudget {
			remaining := cfg.ContextBudget - total
			// Not enough room left for a meaningful fragment.
			if remaining < 200 {
				break
			}
			content = truncateRunes(content, remaining) + "..."
		}

		section := citationHeader(r) + "\n" + content
		sections = append(sections, section)
		total += len(section)

		if total >= cfg.ContextBudget {
			break
		}
	}

	return strings.Join(sections, "\n\n---\n\n")
}

// contentFingerprint hashes a fixed-length prefix of the content. Two
// truncateRunes cuts s to at most n bytes, backing up so a multi-byte
// rune is never split.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// candidates sharing the prefix are treated as the same document.
func contentFingerprint(content string, prefixLen int) uint64 {
	if prefixLen > 0 && len(content) > prefixLen {
		content = content[:prefixLen]
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(content))
	return h.Sum64()
}

// citationHeader builds a per-document citation from payload metadata.
// Legal chunks cite title, chapter and article; everything else gets the
// document title or a generic label.
func citationHeader(r FusedResult) string {
	p := r.Candidate.Payload

	if p.Domain == "legal" {
		var parts []string
		if p.DocTitle != "" {
			parts = append(parts, p.DocTitle)
		}
		if p.Chapter != "" {
			parts = append(parts, p.Chapter)
		}
		if p.ArticleNum != "" {
			parts = append(parts, p.ArticleNum)
		}
		if len(parts) > 0 {
			return "[" + strings.Join(parts, " - ") + "]"
		}
	}

	if p.DocTitle != "" {
		return "[" + p.DocTitle + "]"
	}
	return "[Tài liệu]"
}
