package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/socialmux/socialmux/model"
)

// Client is a typed SDK over the RPC surface. One Client maps to one signed
// in user; set the token once and reuse the client across goroutines.
type Client struct {
	baseUrl string
	token   string
	actor   string
	http    *http.Client
}

func New(baseUrl string) *Client {
	return &Client{
		baseUrl: strings.TrimRight(baseUrl, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken installs the bearer token sent on every subsequent call. SignUp
// and LogIn install it automatically on success.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Token() string {
	return c.token
}

// SetActor sets a raw sub header instead of a token, honored only by servers
// running with auth bypassed. Tests use it to impersonate seeded users.
func (c *Client) SetActor(userID string) {
	c.actor = userID
}

func (c *Client) mutate(ctx context.Context, op string, in, out interface{}) error {
	return c.call(ctx, "/api/mutations/"+op, in, out)
}

func (c *Client) query(ctx context.Context, op string, in, out interface{}) error {
	return c.call(ctx, "/api/queries/"+op, in, out)
}

// call posts the JSON body and decodes either the result or the server's
// error envelope. Envelope messages come back verbatim so callers can
// classify them by substring.
func (c *Client) call(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "failed to encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.actor != "" {
		req.Header.Set("sub", c.actor)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	if res.StatusCode != http.StatusOK {
		var envelope model.ErrorResponse
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
			return errors.New(envelope.Error)
		}
		return errors.Errorf("unexpected status %d", res.StatusCode)
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, out), "failed to decode response")
}

func (c *Client) SignUp(ctx context.Context, input model.SignUpInput) (*model.AuthResult, error) {
	var result model.AuthResult
	if err := c.mutate(ctx, "signUp", input, &result); err != nil {
		return nil, err
	}
	c.token = result.Token
	return &result, nil
}

func (c *Client) LogIn(ctx context.Context, input model.LogInInput) (*model.AuthResult, error) {
	var result model.AuthResult
	if err := c.mutate(ctx, "logIn", input, &result); err != nil {
		return nil, err
	}
	c.token = result.Token
	return &result, nil
}

func (c *Client) FollowPost(ctx context.Context, input model.FollowInput) (*model.FollowResult, error) {
	var result model.FollowResult
	if err := c.mutate(ctx, "followPost", input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UnfollowPost(ctx context.Context, input model.UnfollowInput) (*model.UnfollowResult, error) {
	var result model.UnfollowResult
	if err := c.mutate(ctx, "unfollowPost", input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) IsFollowing(ctx context.Context, postID string) (bool, error) {
	var following bool
	err := c.query(ctx, "isFollowing", model.PostIDInput{PostID: postID}, &following)
	return following, err
}

func (c *Client) GetFollowStates(ctx context.Context, postIDs []string) ([]bool, error) {
	var states []bool
	err := c.query(ctx, "getFollowStates", model.FollowStatesInput{PostIDs: postIDs}, &states)
	return states, err
}

func (c *Client) SendFriendRequest(ctx context.Context, requesteeID string) (*model.FriendRequestResult, error) {
	var result model.FriendRequestResult
	if err := c.mutate(ctx, "sendFriendRequest", model.FriendRequestInput{RequesteeID: requesteeID}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) AcceptFriendRequest(ctx context.Context, friendshipID string) (*model.Friendship, error) {
	var friendship model.Friendship
	if err := c.mutate(ctx, "acceptFriendRequest", model.FriendshipIDInput{FriendshipID: friendshipID}, &friendship); err != nil {
		return nil, err
	}
	return &friendship, nil
}

func (c *Client) DeleteFriendship(ctx context.Context, friendshipID string) (*model.DeleteFriendshipResult, error) {
	var result model.DeleteFriendshipResult
	if err := c.mutate(ctx, "deleteFriendship", model.FriendshipIDInput{FriendshipID: friendshipID}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetFriendshipStatusByUsername(ctx context.Context, username string) (*model.FriendshipStatusView, error) {
	var view model.FriendshipStatusView
	if err := c.query(ctx, "getFriendshipStatusByUsername", model.UsernameInput{Username: username}, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) GetBatchFriendshipStatuses(ctx context.Context, userIDs []string) ([]model.BatchFriendshipEntry, error) {
	var entries []model.BatchFriendshipEntry
	err := c.query(ctx, "getBatchFriendshipStatuses", model.BatchFriendshipStatusInput{UserIDs: userIDs}, &entries)
	return entries, err
}

func (c *Client) AddComment(ctx context.Context, input model.AddCommentInput) (*model.AddCommentResult, error) {
	var result model.AddCommentResult
	if err := c.mutate(ctx, "addComment", input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) (*model.DeleteCommentResult, error) {
	var result model.DeleteCommentResult
	if err := c.mutate(ctx, "deleteComment", model.CommentIDInput{CommentID: commentID}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetComments(ctx context.Context, entryGuid string) ([]model.CommentView, error) {
	var views []model.CommentView
	err := c.query(ctx, "getComments", model.EntryGuidInput{EntryGuid: entryGuid}, &views)
	return views, err
}

func (c *Client) BatchGetComments(ctx context.Context, entryGuids []string) (map[string][]model.CommentView, error) {
	views := make(map[string][]model.CommentView)
	err := c.query(ctx, "batchGetComments", model.BatchCommentsInput{EntryGuids: entryGuids}, &views)
	return views, err
}

func (c *Client) GetCommentReplies(ctx context.Context, commentID string) ([]model.CommentView, error) {
	var views []model.CommentView
	err := c.query(ctx, "getCommentReplies", model.CommentIDInput{CommentID: commentID}, &views)
	return views, err
}

func (c *Client) ToggleCommentLike(ctx context.Context, commentID string) (*model.ToggleCommentLikeResult, error) {
	var result model.ToggleCommentLikeResult
	if err := c.mutate(ctx, "toggleCommentLike", model.CommentIDInput{CommentID: commentID}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetCommentLikeStatus(ctx context.Context, commentID string) (*model.CommentLikeStatus, error) {
	var status model.CommentLikeStatus
	if err := c.query(ctx, "getCommentLikeStatus", model.CommentIDInput{CommentID: commentID}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) BatchGetCommentLikeStatuses(ctx context.Context, commentIDs []string) (map[string]model.CommentLikeStatus, error) {
	statuses := make(map[string]model.CommentLikeStatus)
	err := c.query(ctx, "batchGetCommentLikeStatuses", model.BatchCommentLikesInput{CommentIDs: commentIDs}, &statuses)
	return statuses, err
}

func (c *Client) Retweet(ctx context.Context, input model.RetweetInput) (*model.RetweetResult, error) {
	var result model.RetweetResult
	if err := c.mutate(ctx, "retweet", input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Unretweet(ctx context.Context, entryGuid string) (*model.UnretweetResult, error) {
	var result model.UnretweetResult
	if err := c.mutate(ctx, "unretweet", model.EntryGuidInput{EntryGuid: entryGuid}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetRetweetStatus(ctx context.Context, entryGuid string) (*model.RetweetStatus, error) {
	var status model.RetweetStatus
	if err := c.query(ctx, "getRetweetStatus", model.EntryGuidInput{EntryGuid: entryGuid}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) BatchGetRetweetCounts(ctx context.Context, entryGuids []string) (map[string]model.RetweetStatus, error) {
	statuses := make(map[string]model.RetweetStatus)
	err := c.query(ctx, "batchGetRetweetCounts", model.BatchRetweetCountsInput{EntryGuids: entryGuids}, &statuses)
	return statuses, err
}

func (c *Client) SendChatMessage(ctx context.Context, input model.ChatMessageInput) (*model.ChatMessageResult, error) {
	var result model.ChatMessageResult
	if err := c.mutate(ctx, "sendChatMessage", input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetRateLimitStatus(ctx context.Context) (*model.RateLimitStatus, error) {
	var status model.RateLimitStatus
	if err := c.query(ctx, "getRateLimitStatus", struct{}{}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) GetChatHistory(ctx context.Context, limit int) ([]model.ChatMessageView, error) {
	var views []model.ChatMessageView
	err := c.query(ctx, "getChatHistory", model.ChatHistoryInput{Limit: limit}, &views)
	return views, err
}

func (c *Client) UpdateProfile(ctx context.Context, input model.UpdateProfileInput) (*model.ProfileView, error) {
	var view model.ProfileView
	if err := c.mutate(ctx, "updateProfile", input, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) GetProfileByUsername(ctx context.Context, username string) (*model.ProfileResult, error) {
	var result model.ProfileResult
	if err := c.query(ctx, "getProfileByUsername", model.UsernameInput{Username: username}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ReportContent(ctx context.Context, input model.ReportInput) (*model.ReportResult, error) {
	var result model.ReportResult
	if err := c.mutate(ctx, "reportContent", input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) SubmitFeed(ctx context.Context, url string) (*model.SubmitFeedResult, error) {
	var result model.SubmitFeedResult
	if err := c.mutate(ctx, "submitFeed", model.SubmitFeedInput{Url: url}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
