package model

import (
	"time"
)

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

/*

ChatMessage is one turn of the assistant chat

Id: primary key
CreatedAt: time the message was stored
UserID: owner of the conversation, both user and assistant turns carry it
Role: "user" or "assistant"
Content: message text
ActiveButton: which assistant persona the client had selected when sending

*/
type ChatMessage struct {
	Id           string `gorm:"primaryKey"`
	CreatedAt    time.Time
	UserID       string   `gorm:"index"`
	Role         ChatRole `gorm:"type:varchar(16)"`
	Content      string
	ActiveButton string
}
