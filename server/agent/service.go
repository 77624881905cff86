package agent

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/strandlabs/strand/server/llm"
	"github.com/strandlabs/strand/store"
)

// Transcript is the external-facing view of a turn or a full thread.
// ModelCalls counts model invocations over the thread's whole lifetime;
// it is set on full-history transcripts only.
type Transcript struct {
	ThreadID   string        `json:"thread_id"`
	UserID     string        `json:"user_id"`
	Messages   []llm.Message `json:"messages"`
	StopReason StopReason    `json:"stop_reason,omitempty"`
	ModelCalls int           `json:"model_calls,omitempty"`
}

// Service orchestrates chat turns against the reasoning loop and
// serializes concurrent requests per thread key. Distinct threads run
// fully concurrently.
type Service struct {
	loop  *Loop
	store *store.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates the conversation service.
func NewService(loop *Loop, st *store.Store) *Service {
	return &Service{
		loop:  loop,
		store: st,
		locks: make(map[string]*sync.Mutex),
	}
}

// ThreadKey builds the composite checkpoint key for a conversation.
func ThreadKey(userID, threadID string) string {
	return userID + "_" + threadID
}

// threadLock returns the mutex serializing writes to one thread key.
// Locks are never released from the map; thread counts are small.
func (s *Service) threadLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Chat runs one turn to completion and returns this turn's transcript:
// only the messages generated after the most recent user message,
// reconstructed from the persisted history.
func (s *Service) Chat(ctx context.Context, threadID, userID string, input []llm.Message) (*Transcript, error) {
	key := ThreadKey(userID, threadID)
	lock := s.threadLock(key)
	lock.Lock()
	defer lock.Unlock()

	result, err := s.loop.Run(ctx, key, userID, input, nil)
	if err != nil {
		return nil, err
	}

	msgs, err := s.turnMessages(ctx, key)
	if err != nil {
		return nil, err
	}
	return &Transcript{
		ThreadID:   threadID,
		UserID:     userID,
		Messages:   msgs,
		StopReason: result.StopReason,
	}, nil
}

// Stream runs one turn, yielding an incremental transcript after each
// completed model or tool step, then a terminal transcript carrying the
// stop reason. Once emit fails (client gone), the turn keeps running to
// completion server-side and appends normally.
func (s *Service) Stream(ctx context.Context, threadID, userID string, input []llm.Message, emit func(*Transcript) error) error {
	key := ThreadKey(userID, threadID)
	lock := s.threadLock(key)
	lock.Lock()
	defer lock.Unlock()

	clientGone := false
	result, err := s.loop.Run(ctx, key, userID, input, func(step []llm.Message) {
		if clientGone {
			return
		}
		t := &Transcript{ThreadID: threadID, UserID: userID, Messages: step}
		if err := emit(t); err != nil {
			clientGone = true
		}
	})
	if err != nil {
		return err
	}
	if !clientGone {
		_ = emit(&Transcript{ThreadID: threadID, UserID: userID, StopReason: result.StopReason})
	}
	return nil
}

// ListThreads returns all thread IDs ever created for a user, sorted.
// This scans every persisted thread key and filters by the user prefix.
func (s *Service) ListThreads(ctx context.Context, userID string) ([]string, error) {
	keys, err := s.store.ListThreadKeys(ctx)
	if err != nil {
		return nil, err
	}

	prefix := userID + "_"
	seen := map[string]bool{}
	threads := []string{}
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		id := strings.TrimPrefix(k, prefix)
		if !seen[id] {
			seen[id] = true
			threads = append(threads, id)
		}
	}
	sort.Strings(threads)
	return threads, nil
}

// History returns a thread's full transcript. A thread that was never
// written to yields an empty transcript, not an error. The model call
// count is derived from the durable history: every invocation appends
// exactly one assistant message, so no separate counter is persisted.
func (s *Service) History(ctx context.Context, threadID, userID string) (*Transcript, error) {
	stored, err := s.store.ListMessages(ctx, &store.FindMessages{ThreadKey: ThreadKey(userID, threadID)})
	if err != nil {
		return nil, err
	}
	msgs := fromStoreMessages(stored)
	calls := 0
	for _, m := range msgs {
		if m.Role == llm.RoleAssistant {
			calls++
		}
	}
	return &Transcript{
		ThreadID:   threadID,
		UserID:     userID,
		Messages:   msgs,
		ModelCalls: calls,
	}, nil
}

// turnMessages reconstructs the current turn: scan the persisted
// history backward until a user message, then reverse.
func (s *Service) turnMessages(ctx context.Context, threadKey string) ([]llm.Message, error) {
	stored, err := s.store.ListMessages(ctx, &store.FindMessages{ThreadKey: threadKey})
	if err != nil {
		return nil, err
	}
	all := fromStoreMessages(stored)

	var reversed []llm.Message
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Role == llm.RoleUser {
			break
		}
		reversed = append(reversed, all[i])
	}

	msgs := make([]llm.Message, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		msgs = append(msgs, reversed[i])
	}
	return msgs, nil
}
