package model

import (
	"time"

	"gorm.io/datatypes"
)

type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

/*

FeedSubmission is a user-proposed feed waiting for review

Id: primary key
CreatedAt: time the submission was filed
UserID: the submitting user
Url: the proposed feed url, globally unique so the same feed is only reviewed
     once
Title: feed title extracted at submission time
Status: review state, submissions start out pending
Metadata: snapshot of the parsed feed head (description, image, language)
          kept for the review UI

*/
type FeedSubmission struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	UserID    string `gorm:"index"`
	Url       string `gorm:"uniqueIndex"`
	Title     string
	Status    SubmissionStatus `gorm:"type:varchar(16)"`
	Metadata  datatypes.JSON
}
