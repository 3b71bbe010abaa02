package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQABot_Engine_Router_StartCommandShowsWelcome(t *testing.T) {
	t.Parallel()

	store, _, _, router := newTestEngine(t)
	store.SetState("U1", "brew.size")

	replies := router.Dispatch(context.Background(), "U1", "/start")

	require.Len(t, replies, 1)
	require.Equal(t, "welcome", replies[0].Text)
	require.Equal(t, testProto().MenuKeyboard, replies[0].Keyboard)
	require.Equal(t, StateIdle, store.Get("U1").State)
}

func TestQABot_Engine_Router_WorkflowCommandStartsWorkflow(t *testing.T) {
	t.Parallel()

	store, _, _, router := newTestEngine(t)

	replies := router.Dispatch(context.Background(), "U1", "/brew")

	require.Len(t, replies, 1)
	require.Equal(t, "Pick a size", replies[0].Text)
	require.Equal(t, [][]string{{"S", "L"}}, replies[0].Keyboard)
	require.Equal(t, StateID("brew.size"), store.Get("U1").State)
}

func TestQABot_Engine_Router_WorkflowCommandRestartsMidWorkflow(t *testing.T) {
	t.Parallel()

	store, _, _, router := newTestEngine(t)
	router.Dispatch(context.Background(), "U1", "/brew")
	router.Dispatch(context.Background(), "U1", "L")

	// Switching workflows mid-run abandons the old session entirely.
	replies := router.Dispatch(context.Background(), "U1", "/probe")

	require.Equal(t, "Give me input", replies[0].Text)
	sess := store.Get("U1")
	require.Equal(t, StateID("probe.input"), sess.State)
	require.False(t, sess.Fields.Has("size"))
}

func TestQABot_Engine_Router_MenuButtonStartsWorkflowCaseInsensitive(t *testing.T) {
	t.Parallel()

	store, _, _, router := newTestEngine(t)

	replies := router.Dispatch(context.Background(), "U1", "bReW")

	require.Equal(t, "Pick a size", replies[0].Text)
	require.Equal(t, StateID("brew.size"), store.Get("U1").State)
}

func TestQABot_Engine_Router_ActiveWorkflowOwnsButtonText(t *testing.T) {
	t.Parallel()

	store, _, _, router := newTestEngine(t)
	router.Dispatch(context.Background(), "U1", "/probe")

	// Mid-workflow, another workflow's button label is plain input, not a
	// workflow switch.
	replies := router.Dispatch(context.Background(), "U1", "Brew")

	require.Contains(t, replies[0].Text, "probe: Brew")
	require.Equal(t, StateID("probe.repeat"), store.Get("U1").State)
}

func TestQABot_Engine_Router_HelpInterruptsActiveWorkflow(t *testing.T) {
	t.Parallel()

	store, _, _, router := newTestEngine(t)
	router.Dispatch(context.Background(), "U1", "/brew")
	router.Dispatch(context.Background(), "U1", "L")

	replies := router.Dispatch(context.Background(), "U1", "/help")

	require.Equal(t, "help", replies[0].Text)
	// Interrupts discard everything collected so far.
	sess := store.Get("U1")
	require.Equal(t, StateIdle, sess.State)
	require.False(t, sess.Fields.Has("size"))
}

func TestQABot_Engine_Router_CancelInterruptsActiveWorkflow(t *testing.T) {
	t.Parallel()

	store, _, _, router := newTestEngine(t)
	router.Dispatch(context.Background(), "U1", "/brew")

	replies := router.Dispatch(context.Background(), "U1", "/cancel")

	require.Equal(t, "cancelled", replies[0].Text)
	require.Equal(t, StateIdle, store.Get("U1").State)
}

func TestQABot_Engine_Router_BackTokenInterruptsActiveWorkflow(t *testing.T) {
	t.Parallel()

	store, _, _, router := newTestEngine(t)
	router.Dispatch(context.Background(), "U1", "/brew")
	router.Dispatch(context.Background(), "U1", "S")

	replies := router.Dispatch(context.Background(), "U1", "Back to menu")

	require.Equal(t, "menu", replies[0].Text)
	require.Equal(t, StateIdle, store.Get("U1").State)
}

func TestQABot_Engine_Router_BackTokenMidWorkflowIsCaseSensitive(t *testing.T) {
	t.Parallel()

	store, _, _, router := newTestEngine(t)
	router.Dispatch(context.Background(), "U1", "/probe")

	// Mid-workflow the back phrase only matches exactly; anything else is
	// step input the user may genuinely mean.
	replies := router.Dispatch(context.Background(), "U1", "back to menu")

	require.Contains(t, replies[0].Text, "probe: back to menu")
	require.Equal(t, StateID("probe.repeat"), store.Get("U1").State)
}

func TestQABot_Engine_Router_IdleBackTokenShowsMenu(t *testing.T) {
	t.Parallel()

	_, _, _, router := newTestEngine(t)

	replies := router.Dispatch(context.Background(), "U1", "back TO menu")

	require.Equal(t, "menu", replies[0].Text)
}

func TestQABot_Engine_Router_IdleInfoButtonShowsHelp(t *testing.T) {
	t.Parallel()

	_, _, _, router := newTestEngine(t)

	replies := router.Dispatch(context.Background(), "U1", "info")

	require.Equal(t, "help", replies[0].Text)
}

func TestQABot_Engine_Router_IdleHelpAndCancelCommands(t *testing.T) {
	t.Parallel()

	_, _, _, router := newTestEngine(t)

	require.Equal(t, "help", router.Dispatch(context.Background(), "U1", "/help")[0].Text)
	require.Equal(t, "cancelled", router.Dispatch(context.Background(), "U1", "/cancel")[0].Text)
}

func TestQABot_Engine_Router_IdleUnknownTextShowsMenu(t *testing.T) {
	t.Parallel()

	_, _, _, router := newTestEngine(t)

	replies := router.Dispatch(context.Background(), "U1", "how do I frobnicate?")

	require.Len(t, replies, 1)
	require.Equal(t, "menu", replies[0].Text)
	require.Equal(t, testProto().MenuKeyboard, replies[0].Keyboard)
}

func TestQABot_Engine_Router_FullRunThenRepeat(t *testing.T) {
	t.Parallel()

	store, _, _, router := newTestEngine(t)
	ctx := context.Background()

	router.Dispatch(ctx, "U1", "/brew")
	router.Dispatch(ctx, "U1", "L")
	replies := router.Dispatch(ctx, "U1", "oat")

	require.Len(t, replies, 2)
	require.Equal(t, "order: L + oat", replies[0].Text)
	require.Equal(t, "another one?", replies[1].Text)

	replies = router.Dispatch(ctx, "U1", "Create another")
	require.Equal(t, "Pick a size", replies[0].Text)
	require.Equal(t, StateID("brew.size"), store.Get("U1").State)

	// Second run works identically from the clean slate.
	router.Dispatch(ctx, "U1", "S")
	replies = router.Dispatch(ctx, "U1", "Skip")
	require.Equal(t, "order: S", replies[0].Text)

	replies = router.Dispatch(ctx, "U1", "Back to menu")
	require.Equal(t, "menu", replies[0].Text)
	require.Equal(t, StateIdle, store.Get("U1").State)
}

func TestQABot_Engine_Router_UsersDoNotShareSessions(t *testing.T) {
	t.Parallel()

	store, _, _, router := newTestEngine(t)
	ctx := context.Background()

	router.Dispatch(ctx, "U1", "/brew")
	router.Dispatch(ctx, "U2", "/probe")
	router.Dispatch(ctx, "U1", "L")

	require.Equal(t, StateID("brew.milk"), store.Get("U1").State)
	require.Equal(t, StateID("probe.input"), store.Get("U2").State)
}
