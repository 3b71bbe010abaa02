package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qatools/qabot/engine"
	qatesting "github.com/qatools/qabot/utils/pkg/testing"
)

type fakeRouter struct {
	mu      sync.Mutex
	calls   []string
	replies []engine.Reply
}

func (f *fakeRouter) Dispatch(ctx context.Context, userID, text string) []engine.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID+"|"+text)
	return f.replies
}

func (f *fakeRouter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []engine.Reply
	fails int
}

func (f *fakeSender) SendReply(ctx context.Context, channelID string, reply engine.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("slack unavailable")
	}
	f.sent = append(f.sent, reply)
	return nil
}

func TestQABot_Bot_Dispatcher_MessageKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "C123:1700000000.000100", MessageKey("C123", "1700000000.000100"))
}

func TestQABot_Bot_Dispatcher_DispatchMessage(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{replies: []engine.Reply{
		{Text: "first"},
		{Text: "second", Keyboard: [][]string{{"Да", "Нет"}}},
	}}
	sender := &fakeSender{}
	d := NewDispatcher(sender, router, qatesting.NewLogger())

	d.DispatchMessage(context.Background(), "C1", "U1", "/help", MessageKey("C1", "1.0"))

	require.Equal(t, []string{"U1|/help"}, router.calls)
	require.Len(t, sender.sent, 2)
	require.Equal(t, "first", sender.sent[0].Text)
	require.Equal(t, [][]string{{"Да", "Нет"}}, sender.sent[1].Keyboard)
	require.True(t, d.HasHandled(MessageKey("C1", "1.0")))
}

func TestQABot_Bot_Dispatcher_DropsDuplicates(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{replies: []engine.Reply{{Text: "ok"}}}
	sender := &fakeSender{}
	d := NewDispatcher(sender, router, qatesting.NewLogger())

	key := MessageKey("C1", "2.0")
	d.DispatchMessage(context.Background(), "C1", "U1", "hello", key)
	d.DispatchMessage(context.Background(), "C1", "U1", "hello", key)

	require.Equal(t, 1, router.callCount())
	require.Len(t, sender.sent, 1)
}

func TestQABot_Bot_Dispatcher_SendFailureStopsTurn(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{replies: []engine.Reply{
		{Text: "first"},
		{Text: "second"},
	}}
	sender := &fakeSender{fails: 1}
	d := NewDispatcher(sender, router, qatesting.NewLogger())

	d.DispatchMessage(context.Background(), "C1", "U1", "hello", MessageKey("C1", "3.0"))

	// First reply failed, second is never attempted.
	require.Empty(t, sender.sent)
	// The message stays marked handled so redeliveries don't re-run the turn.
	require.True(t, d.HasHandled(MessageKey("C1", "3.0")))
}

func TestQABot_Bot_Dispatcher_SerializesPerUser(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var active, maxActive int

	router := &slowRouter{onDispatch: func() {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
	}}
	sender := &fakeSender{}
	d := NewDispatcher(sender, router, qatesting.NewLogger())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		ts := time.Now().Add(time.Duration(i) * time.Millisecond).String()
		go func(ts string) {
			defer wg.Done()
			d.DispatchMessage(context.Background(), "C1", "U1", "msg", MessageKey("C1", ts))
		}(ts)
	}
	wg.Wait()

	require.Equal(t, 1, maxActive)
}

type slowRouter struct {
	onDispatch func()
}

func (s *slowRouter) Dispatch(ctx context.Context, userID, text string) []engine.Reply {
	s.onDispatch()
	return nil
}

func TestQABot_Bot_Dispatcher_CleanupEvictsOldEntries(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(&fakeSender{}, &fakeRouter{}, qatesting.NewLogger())

	d.handledMessagesMu.Lock()
	d.handledMessages["old"] = time.Now().Add(-2 * time.Hour)
	d.handledMessages["fresh"] = time.Now()
	d.handledMessagesMu.Unlock()

	d.userLocksMu.Lock()
	d.userLocks["stale-user"] = &userLockEntry{lastUsed: time.Now().Add(-2 * time.Hour)}
	d.userLocks["active-user"] = &userLockEntry{lastUsed: time.Now()}
	d.userLocksMu.Unlock()

	d.cleanup()

	require.False(t, d.HasHandled("old"))
	require.True(t, d.HasHandled("fresh"))

	d.userLocksMu.Lock()
	_, staleExists := d.userLocks["stale-user"]
	_, activeExists := d.userLocks["active-user"]
	d.userLocksMu.Unlock()
	require.False(t, staleExists)
	require.True(t, activeExists)
}

func TestQABot_Bot_Dispatcher_CleanupSkipsHeldLocks(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(&fakeSender{}, &fakeRouter{}, qatesting.NewLogger())

	entry := &userLockEntry{lastUsed: time.Now().Add(-2 * time.Hour)}
	entry.mu.Lock()
	d.userLocksMu.Lock()
	d.userLocks["busy-user"] = entry
	d.userLocksMu.Unlock()

	d.cleanup()

	d.userLocksMu.Lock()
	_, exists := d.userLocks["busy-user"]
	d.userLocksMu.Unlock()
	require.True(t, exists)

	entry.mu.Unlock()
}
