package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/socialmux/socialmux/server/api"
	"github.com/socialmux/socialmux/server/middlewares"
	"github.com/socialmux/socialmux/server/signal"
	Logger "github.com/socialmux/socialmux/utils/log"
)

const (
	signalWriteWait  = 10 * time.Second
	signalPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The token query parameter is the gate, not the origin.
		return true
	},
}

// RegisterRoutes wires every mutation and query onto the router. Everything
// sits behind JWT except signUp and logIn, which issue the tokens. Signal is
// a websocket and authenticates through the token query parameter, handled by
// the same middleware.
func RegisterRoutes(router *gin.Engine, a *api.API, channels *signal.Channels) {
	public := router.Group("/api/mutations")
	public.POST("/signUp", a.HandleSignUp)
	public.POST("/logIn", a.HandleLogIn)

	mutations := router.Group("/api/mutations", middlewares.JWT())
	mutations.POST("/followPost", a.HandleFollowPost)
	mutations.POST("/unfollowPost", a.HandleUnfollowPost)
	mutations.POST("/sendFriendRequest", a.HandleSendFriendRequest)
	mutations.POST("/acceptFriendRequest", a.HandleAcceptFriendRequest)
	mutations.POST("/deleteFriendship", a.HandleDeleteFriendship)
	mutations.POST("/addComment", a.HandleAddComment)
	mutations.POST("/deleteComment", a.HandleDeleteComment)
	mutations.POST("/toggleCommentLike", a.HandleToggleCommentLike)
	mutations.POST("/retweet", a.HandleRetweet)
	mutations.POST("/unretweet", a.HandleUnretweet)
	mutations.POST("/sendChatMessage", a.HandleSendChatMessage)
	mutations.POST("/updateProfile", a.HandleUpdateProfile)
	mutations.POST("/reportContent", a.HandleReportContent)
	mutations.POST("/submitFeed", a.HandleSubmitFeed)

	queries := router.Group("/api/queries", middlewares.JWT())
	queries.POST("/isFollowing", a.HandleIsFollowing)
	queries.POST("/getFollowStates", a.HandleGetFollowStates)
	queries.POST("/getFriendshipStatusByUsername", a.HandleGetFriendshipStatusByUsername)
	queries.POST("/getBatchFriendshipStatuses", a.HandleGetBatchFriendshipStatuses)
	queries.POST("/getComments", a.HandleGetComments)
	queries.POST("/batchGetComments", a.HandleBatchGetComments)
	queries.POST("/getCommentReplies", a.HandleGetCommentReplies)
	queries.POST("/getCommentLikeStatus", a.HandleGetCommentLikeStatus)
	queries.POST("/batchGetCommentLikeStatuses", a.HandleBatchGetCommentLikeStatuses)
	queries.POST("/getRetweetStatus", a.HandleGetRetweetStatus)
	queries.POST("/batchGetRetweetCounts", a.HandleBatchGetRetweetCounts)
	queries.POST("/getRateLimitStatus", a.HandleGetRateLimitStatus)
	queries.POST("/getChatHistory", a.HandleGetChatHistory)
	queries.POST("/getProfileByUsername", a.HandleGetProfileByUsername)
	queries.GET("/signal", SignalHandler(channels))
}

// SignalHandler upgrades the request to a websocket and streams the user's
// signals as JSON frames until the client goes away. Writing is the only
// traffic we originate; reads exist purely to notice the close.
func SignalHandler(channels *signal.Channels) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Request.Header.Get("sub")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated: missing token"})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			Logger.Log.Errorln("failed to upgrade signal connection:", err)
			return
		}
		defer ws.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		ch, chID := channels.AddConnection(ctx, userID)
		Logger.Log.Infoln("signal connection established:", chID, "user:", userID)

		// Reader goroutine. Client frames carry no meaning, but the read pump
		// is what surfaces the close handshake and dead connections.
		go func() {
			defer cancel()
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(signalPingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				ws.SetWriteDeadline(time.Now().Add(signalWriteWait))
				if err := ws.WriteJSON(sig); err != nil {
					Logger.Log.Infoln("signal connection closed:", chID, err)
					return
				}
			case <-ticker.C:
				ws.SetWriteDeadline(time.Now().Add(signalWriteWait))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}
