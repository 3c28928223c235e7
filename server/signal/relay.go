package signal

import (
	"context"

	"github.com/DataDog/datadog-go/statsd"

	"github.com/socialmux/socialmux/model"
	"github.com/socialmux/socialmux/utils"
	Logger "github.com/socialmux/socialmux/utils/log"
)

const (
	metricMutationAccepted = "mutation.accepted"
	metricMutationRejected = "mutation.rejected"
)

// Relay drains the mutations topic, counts accepted/rejected mutations and
// fans invalidation signals out to the affected users' channels. Mutations
// publish and move on, nothing here runs on a request path.
type Relay struct {
	Bus      *utils.EventBus
	Channels *Channels
	Statsd   *statsd.Client
}

func NewRelay(bus *utils.EventBus, channels *Channels, statsdClient *statsd.Client) *Relay {
	return &Relay{
		Bus:      bus,
		Channels: channels,
		Statsd:   statsdClient,
	}
}

// Run blocks until ctx terminates or the bus closes.
func (r *Relay) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := r.Bus.Subscribe(ctx, utils.TopicMutations)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		event, err := utils.DecodeEvent(msg)
		if err != nil {
			Logger.Log.Errorln("cannot decode mutation event:", err)
			continue
		}
		r.process(event)
	}
	return nil
}

func (r *Relay) process(event model.Event) {
	if event.LimitedBy != "" {
		r.count(metricMutationRejected, "op:"+string(event.Type), "tier:"+event.LimitedBy)
		return
	}
	r.count(metricMutationAccepted, "op:"+string(event.Type))

	signal, targets, broadcast := signalFor(event)
	if signal == nil {
		return
	}
	if broadcast {
		r.Channels.Broadcast(signal)
		return
	}
	for _, userID := range targets {
		// Users without an open connection simply miss the push, their next
		// query reads fresh state anyway.
		if err := r.Channels.Push(signal, userID); err != nil {
			continue
		}
	}
}

// signalFor maps a committed mutation to the signal its viewers need.
// Relationship mutations target the two parties, entry-scoped mutations are
// broadcast because entry viewership is not tracked per user.
func signalFor(event model.Event) (*model.Signal, []string, bool) {
	switch event.Type {
	case model.EventFollowed, model.EventUnfollowed:
		return &model.Signal{SignalType: model.SignalTypeFollowing}, []string{event.ActorID}, false
	case model.EventFriendRequest, model.EventFriendAccepted, model.EventFriendDeleted:
		signal := &model.Signal{SignalType: model.SignalTypeFriendship, UserID: event.ActorID}
		targets := []string{event.ActorID}
		if event.TargetUserID != "" && event.TargetUserID != event.ActorID {
			targets = append(targets, event.TargetUserID)
		}
		return signal, targets, false
	case model.EventCommentCreated, model.EventCommentDeleted, model.EventCommentLiked:
		return &model.Signal{SignalType: model.SignalTypeComments, EntryGuid: event.EntryGuid}, nil, true
	case model.EventRetweeted, model.EventUnretweeted:
		return &model.Signal{SignalType: model.SignalTypeRetweets, EntryGuid: event.EntryGuid}, nil, true
	}
	return nil, nil, false
}

func (r *Relay) count(name string, tags ...string) {
	if r.Statsd == nil {
		return
	}
	if err := r.Statsd.Incr(name, tags, 1); err != nil {
		Logger.Log.Infoln("cannot report mutation metric:", err)
	}
}
