package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/strandlabs/strand/server/llm"
)

// systemPrompt is the fixed instruction prepended to every model call.
func systemPrompt(now time.Time) string {
	return fmt.Sprintf(
		`You are a helpful assistant with access to a set of tools.
Today's local date: %s.

Use the tools provided to you to answer the user's questions. When a tool
returns an error, explain the problem to the user instead of retrying blindly.`,
		now.Format("2006-01-02 15:04:05"),
	)
}

// memoriesContext frames retrieved memories as a synthetic contextual
// message injected after the system instruction.
func memoriesContext(memories []string) llm.Message {
	var sb strings.Builder
	sb.WriteString("Relevant memories about this user from earlier conversations:\n")
	for _, m := range memories {
		sb.WriteString("- " + m + "\n")
	}
	return llm.Message{Role: llm.RoleSystem, Content: sb.String()}
}

// memoryCreatePrompt asks the model to distill a turn into a short
// durable memory.
const memoryCreatePrompt = `Please prepare a short memory from the provided conversation.
Summarize the provided conversation in no more than 100 words.
If the conversation contains the user's name, interests, or personal/professional details, include those in the memory for future reference.
Document any notable memories or details the user shares for later recall.
Output only the memory, with no additional or extraneous text.

Here is the conversation:
%s`
