package rag

import (
	"fmt"
	"strings"
)

const answerPromptTemplate = `You are a careful assistant. Use the provided context to answer the user's question. If the answer cannot be derived from the context, say you are unsure.

Context:
%s

Question: %s

Answer succinctly and cite specific context snippets.`

func joinContext(context []string) string {
	return strings.Join(context, "\n\n")
}

func buildAnswerPrompt(query string, context []string) string {
	return fmt.Sprintf(answerPromptTemplate, joinContext(context), query)
}

func buildClassifyPrompt(claim, answer string, context []string) string {
	var sb strings.Builder
	sb.WriteString("You are a fact verification assistant. Classify the claim based on the context and answer. ")
	sb.WriteString("Choose one of: ")
	sb.WriteString(labelList())
	sb.WriteString(".\n")
	sb.WriteString("Return a JSON object with keys: label, confidence (0-1), rationale.\n")
	sb.WriteString("Claim: " + claim + "\n")
	sb.WriteString("Answer: " + answer + "\n")
	sb.WriteString("Context: " + joinContext(context))
	return sb.String()
}
