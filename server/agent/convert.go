package agent

import (
	"context"

	"github.com/pkg/errors"

	"github.com/strandlabs/strand/server/llm"
	"github.com/strandlabs/strand/store"
)

// append persists a batch of messages as one atomic extension of the
// thread's sequence.
func (l *Loop) append(ctx context.Context, threadKey string, msgs []llm.Message) error {
	err := l.store.AppendMessages(ctx, &store.AppendMessages{
		ThreadKey: threadKey,
		Messages:  toStoreMessages(msgs),
	})
	return errors.Wrap(err, "append messages")
}

// load reads the thread's full history, oldest first.
func (l *Loop) load(ctx context.Context, threadKey string) ([]llm.Message, error) {
	stored, err := l.store.ListMessages(ctx, &store.FindMessages{ThreadKey: threadKey})
	if err != nil {
		return nil, errors.Wrap(err, "load messages")
	}
	return fromStoreMessages(stored), nil
}

func toStoreMessages(msgs []llm.Message) []store.Message {
	out := make([]store.Message, 0, len(msgs))
	for _, m := range msgs {
		sm := store.Message{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			sm.ToolCalls = append(sm.ToolCalls, store.ToolCall{
				ID:        tc.ID,
				Name:      tc.Name,
				Arguments: tc.Arguments,
			})
		}
		out = append(out, sm)
	}
	return out
}

func fromStoreMessages(msgs []*store.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		lm := llm.Message{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			lm.ToolCalls = append(lm.ToolCalls, llm.ToolCall{
				ID:        tc.ID,
				Name:      tc.Name,
				Arguments: tc.Arguments,
			})
		}
		out = append(out, lm)
	}
	return out
}
