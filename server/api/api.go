package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/socialmux/socialmux/model"
	"github.com/socialmux/socialmux/ratelimit"
	"github.com/socialmux/socialmux/server/signal"
	"github.com/socialmux/socialmux/utils"
	Logger "github.com/socialmux/socialmux/utils/log"
)

/*
API carries the shared state every RPC handler needs. Handlers live in one
file per feature, each as a pair: an unexported method holding the logic and
an exported Handle method binding it to gin. Tests assemble an API against a
temp database and drive the real router.
*/
type API struct {
	DB       *gorm.DB
	Limiter  *ratelimit.Limiter
	Bus      *utils.EventBus
	Channels *signal.Channels

	// Notifier is optional, reports still commit without one.
	Notifier ReportNotifier
	// Responder is optional, chat falls back to a canned reply without one.
	Responder ChatResponder
}

// ReportNotifier forwards an accepted report to moderators out of band. It
// must never fail the mutation that produced the report.
type ReportNotifier interface {
	NotifyReport(report model.Report, reporter model.User)
}

// ChatResponder produces the assistant reply for a chat message. The persona
// comes from the client's active button.
type ChatResponder interface {
	Respond(ctx context.Context, persona string, history []model.ChatMessage, message string) (string, error)
}

// requireActor reads the user id the JWT middleware stored in the request,
// exactly where downstream code expects it.
func requireActor(c *gin.Context) (string, bool) {
	userID := c.Request.Header.Get("sub")
	if userID == "" {
		abortWithError(c, errNotAuthenticated())
		return "", false
	}
	return userID, true
}

func bindInput(c *gin.Context, input interface{}) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		abortWithError(c, errInvalidBody())
		return false
	}
	return true
}

// publish emits a mutation event. A failed publish only costs a signal, the
// mutation already committed, so it is logged and swallowed.
func (api *API) publish(event model.Event) {
	if api.Bus == nil {
		return
	}
	if err := api.Bus.PublishEvent(event); err != nil {
		Logger.Log.Errorln("failed to publish mutation event:", err)
	}
}

// publishRejected feeds limiter refusals to the metrics relay. No-op when err
// is not a tier refusal.
func (api *API) publishRejected(eventType model.EventType, userID string, err error) {
	name := ratelimit.LimitedBy(err)
	if name == "" {
		return
	}
	api.publish(model.Event{Type: eventType, ActorID: userID, LimitedBy: name})
}
