package core

import (
	"fmt"
	"strings"
)

// SystemRAG is the base system instruction for grounded answers. Citation
// markers in the answer must follow the context block order.
const SystemRAG = `Ты — ассистент корпоративного сайта. Отвечай кратко и по делу.
Если в контексте нет информации, не выдумывай. Попроси уточнение или предложи оставить контакты.
Всегда добавляй список источников в конце, используя ссылки вида [1], [2] по порядку контекста.`

// BuildContext renders ranked chunks as numbered context blocks. The n-th
// block carries the marker [n] referencing the n-th chunk, so the answer's
// citations line up with the response's sources list.
func BuildContext(chunks []RetrievedChunk) string {
	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		parts = append(parts, fmt.Sprintf("[%d] %s (%s)\n%s", i+1, c.Title, c.DocID, c.Text))
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// BuildMessages assembles the generation request in its fixed order:
// system instructions, optional summary block, history turns in
// chronological order, optional knowledge-context block, then the current
// user message. The generation collaborator depends on this exact order.
func BuildMessages(system string, history []Turn, user, contextText, summary string) []Message {
	msgs := []Message{{Role: RoleSystem, Content: system}}
	if summary != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: "Краткий контекст диалога:\n" + summary})
	}
	for _, t := range history {
		if (t.Role == RoleUser || t.Role == RoleAssistant) && t.Content != "" {
			msgs = append(msgs, Message{Role: t.Role, Content: t.Content})
		}
	}
	if contextText != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: "Контекст из базы знаний:\n" + contextText})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: user})
	return msgs
}
