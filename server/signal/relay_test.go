package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/socialmux/socialmux/model"
	"github.com/socialmux/socialmux/utils"
)

func startRelay(t *testing.T) (*utils.EventBus, *Channels, context.Context) {
	bus := utils.NewEventBus()
	channels := NewChannels()
	relay := NewRelay(bus, channels, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		bus.Close()
	})

	go relay.Run(ctx)
	// Give the subscription a moment to attach before anything publishes.
	time.Sleep(100 * time.Millisecond)
	return bus, channels, ctx
}

func waitSignal(t *testing.T, ch chan *model.Signal) *model.Signal {
	select {
	case signal := <-ch:
		return signal
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for signal")
		return nil
	}
}

func TestRelayPushesFriendshipSignalToBothParties(t *testing.T) {
	bus, channels, ctx := startRelay(t)
	alice, _ := channels.AddConnection(ctx, "alice")
	bob, _ := channels.AddConnection(ctx, "bob")

	require.NoError(t, bus.PublishEvent(model.Event{
		Type:         model.EventFriendRequest,
		ActorID:      "alice",
		TargetUserID: "bob",
	}))

	require.Equal(t, model.SignalTypeFriendship, waitSignal(t, alice).SignalType)
	signal := waitSignal(t, bob)
	require.Equal(t, model.SignalTypeFriendship, signal.SignalType)
	require.Equal(t, "alice", signal.UserID)
}

func TestRelayBroadcastsEntrySignals(t *testing.T) {
	bus, channels, ctx := startRelay(t)
	alice, _ := channels.AddConnection(ctx, "alice")
	bob, _ := channels.AddConnection(ctx, "bob")

	require.NoError(t, bus.PublishEvent(model.Event{
		Type:      model.EventCommentCreated,
		ActorID:   "alice",
		EntryGuid: "entry-1",
	}))

	for _, ch := range []chan *model.Signal{alice, bob} {
		signal := waitSignal(t, ch)
		require.Equal(t, model.SignalTypeComments, signal.SignalType)
		require.Equal(t, "entry-1", signal.EntryGuid)
	}
}

func TestRelayFollowSignalOnlyReachesActor(t *testing.T) {
	bus, channels, ctx := startRelay(t)
	alice, _ := channels.AddConnection(ctx, "alice")
	bob, _ := channels.AddConnection(ctx, "bob")

	require.NoError(t, bus.PublishEvent(model.Event{
		Type:    model.EventFollowed,
		ActorID: "alice",
	}))

	require.Equal(t, model.SignalTypeFollowing, waitSignal(t, alice).SignalType)
	require.Equal(t, 0, len(bob))
}

func TestRelayDropsRejectedMutations(t *testing.T) {
	bus, channels, ctx := startRelay(t)
	alice, _ := channels.AddConnection(ctx, "alice")

	require.NoError(t, bus.PublishEvent(model.Event{
		Type:      model.EventCommentCreated,
		ActorID:   "alice",
		EntryGuid: "entry-1",
		LimitedBy: "commentsBurst",
	}))

	select {
	case <-alice:
		t.Fatal("rejected mutation must not produce a signal")
	case <-time.After(300 * time.Millisecond):
	}
}
