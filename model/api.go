package model

// Request and response shapes of the RPC surface. Mutation handlers bind the
// inputs from JSON bodies, the Go client marshals the same structs, so wire
// names live here and nowhere else.

const (
	ActionFollowed    = "followed"
	ActionUnfollowed  = "unfollowed"
	ActionRetweeted   = "retweeted"
	ActionUnretweeted = "unretweeted"
	ActionCreated     = "created"
	ActionDeleted     = "deleted"
	ActionLiked       = "liked"
	ActionUnliked     = "unliked"
)

type SignUpInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LogInInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResult struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

type FollowInput struct {
	PostID  string `json:"postId"`
	FeedUrl string `json:"feedUrl"`
	RssKey  string `json:"rssKey"`
}

type FollowResult struct {
	Success bool   `json:"success"`
	FeedUrl string `json:"feedUrl,omitempty"`
	Action  string `json:"action"`
}

type UnfollowInput struct {
	PostID string `json:"postId"`
	RssKey string `json:"rssKey"`
}

type UnfollowResult struct {
	Success bool   `json:"success"`
	Action  string `json:"action,omitempty"`
	Error   string `json:"error,omitempty"`
}

type FollowStatesInput struct {
	PostIDs []string `json:"postIds"`
}

type PostIDInput struct {
	PostID string `json:"postId"`
}

type EntryGuidInput struct {
	EntryGuid string `json:"entryGuid"`
}

type UsernameInput struct {
	Username string `json:"username"`
}

type FriendRequestInput struct {
	RequesteeID string `json:"requesteeId"`
}

type FriendRequestResult struct {
	FriendshipID string `json:"friendshipId"`
}

type FriendshipIDInput struct {
	FriendshipID string `json:"friendshipId"`
}

type DeleteFriendshipResult struct {
	Action       string `json:"action"`
	FriendshipID string `json:"friendshipId"`
}

// FriendshipStatusView answers the by-username lookup. Status is one of
// self/none/pending/accepted; Direction is the direction of the underlying
// request whenever a row exists.
type FriendshipStatusView struct {
	UserID       string `json:"userId,omitempty"`
	Username     string `json:"username,omitempty"`
	Exists       bool   `json:"exists"`
	Status       string `json:"status"`
	Direction    string `json:"direction,omitempty"`
	FriendshipID string `json:"friendshipId,omitempty"`
}

type BatchFriendshipStatusInput struct {
	UserIDs []string `json:"userIds"`
}

// BatchFriendshipEntry is one record of getBatchFriendshipStatuses, in input
// order.
type BatchFriendshipEntry struct {
	UserID       string `json:"userId"`
	Status       string `json:"status"`
	Direction    string `json:"direction,omitempty"`
	FriendshipID string `json:"friendshipId,omitempty"`
}

type AddCommentInput struct {
	EntryGuid string  `json:"entryGuid"`
	FeedUrl   string  `json:"feedUrl"`
	Content   string  `json:"content"`
	ParentID  *string `json:"parentId,omitempty"`
}

type AddCommentResult struct {
	Action    string `json:"action"`
	CommentID string `json:"commentId"`
}

type CommentIDInput struct {
	CommentID string `json:"commentId"`
}

type DeleteCommentResult struct {
	Success bool `json:"success"`
	Deleted int  `json:"deleted"`
}

// CommentView is a comment row plus the author's display projection resolved
// at read time.
type CommentView struct {
	Comment
	User UserDisplay `json:"user"`
}

type BatchCommentsInput struct {
	EntryGuids []string `json:"entryGuids"`
}

type ToggleCommentLikeResult struct {
	Action    string `json:"action"`
	LikeCount int    `json:"likeCount"`
}

type CommentLikeStatus struct {
	IsLiked bool `json:"isLiked"`
	Count   int  `json:"count"`
}

type BatchCommentLikesInput struct {
	CommentIDs []string `json:"commentIds"`
}

type RetweetInput struct {
	EntryGuid string `json:"entryGuid"`
	FeedUrl   string `json:"feedUrl"`
	Title     string `json:"title"`
	PubDate   string `json:"pubDate"`
	Link      string `json:"link"`
}

type RetweetResult struct {
	Action    string `json:"action"`
	RetweetID string `json:"retweetId"`
}

type UnretweetResult struct {
	Success  bool `json:"success"`
	NotFound bool `json:"notFound,omitempty"`
}

type RetweetStatus struct {
	IsRetweeted bool `json:"isRetweeted"`
	Count       int  `json:"count"`
}

type BatchRetweetCountsInput struct {
	EntryGuids []string `json:"entryGuids"`
}

type ChatMessageInput struct {
	Message      string `json:"message"`
	ActiveButton string `json:"activeButton"`
}

type ChatHistoryInput struct {
	Limit int `json:"limit"`
}

type ChatMessageView struct {
	Id        string   `json:"id"`
	Role      ChatRole `json:"role"`
	Content   string   `json:"content"`
	CreatedAt int64    `json:"createdAt"`
}

type ChatMessageResult struct {
	Limited      bool             `json:"limited"`
	RetryAfterMs int64            `json:"retryAfterMs,omitempty"`
	Success      bool             `json:"success"`
	Message      *ChatMessageView `json:"message,omitempty"`
}

type RateLimitStatus struct {
	Remaining int `json:"remaining"`
	Used      int `json:"used"`
}

type UpdateProfileInput struct {
	Name         *string `json:"name,omitempty"`
	Bio          *string `json:"bio,omitempty"`
	ProfileImage *string `json:"profileImage,omitempty"`
}

type ProfileView struct {
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	Bio          string `json:"bio"`
	ProfileImage string `json:"profileImage"`
}

// ProfileResult pairs a public profile with the caller's relation to it, so
// profile pages render without a second round trip.
type ProfileResult struct {
	Profile    ProfileView           `json:"profile"`
	Friendship *FriendshipStatusView `json:"friendship,omitempty"`
}

type ReportInput struct {
	EntryGuid string `json:"entryGuid,omitempty"`
	FeedUrl   string `json:"feedUrl,omitempty"`
	Reason    string `json:"reason"`
	Details   string `json:"details,omitempty"`
}

type ReportResult struct {
	Success  bool   `json:"success"`
	ReportID string `json:"reportId"`
}

type SubmitFeedInput struct {
	Url string `json:"url"`
}

type SubmitFeedResult struct {
	Success          bool   `json:"success"`
	SubmissionID     string `json:"submissionId,omitempty"`
	Title            string `json:"title,omitempty"`
	AlreadySubmitted bool   `json:"alreadySubmitted,omitempty"`
}

// ErrorResponse is the uniform error envelope, clients classify Error by
// substring match.
type ErrorResponse struct {
	Error string `json:"error"`
}
