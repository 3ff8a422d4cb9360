package service

import (
	"strings"

	"syllabus-rag/internal/domain"
)

// FallbackAnswer is what the model is told to reply when the context does
// not contain the answer.
const FallbackAnswer = "Sorry not Available"

// BuildPrompt stuffs the retrieved chunks, separated by blank lines, into the
// fixed question-answering template.
func BuildPrompt(question string, results []domain.SearchResult) string {
	var sb strings.Builder

	sb.WriteString("Answer the question using the context provided below.\n")
	sb.WriteString("If the answer is not in the context, reply with \"" + FallbackAnswer + "\"\n")
	sb.WriteString("Don't mention the number of hours.\n\n")

	sb.WriteString("Context:\n")
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(r.Chunk.Text)
	}
	sb.WriteString("\n\n")

	sb.WriteString("Question:\n")
	sb.WriteString(strings.TrimSpace(question))
	sb.WriteString("\n\n")

	sb.WriteString("Answer:\n")
	return sb.String()
}
