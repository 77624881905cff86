package agent

import "github.com/strandlabs/strand/server/llm"

// trimMessages truncates history from the oldest end so the kept window
// fits budget (measured in characters, 4 chars ≈ 1 token). Messages are
// never split; the most recent message is always kept even when it
// alone exceeds the budget.
func trimMessages(messages []llm.Message, budget int) []llm.Message {
	if len(messages) == 0 {
		return messages
	}

	total := 0
	cut := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		total += messages[i].SizeHint()
		if total > budget && i < len(messages)-1 {
			break
		}
		cut = i
	}
	return messages[cut:]
}
