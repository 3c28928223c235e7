package api

import (
	"strings"
	"unicode"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/socialmux/socialmux/model"
	"github.com/socialmux/socialmux/utils"
)

// queryChunkSize bounds IN queries on batch endpoints.
const queryChunkSize = 50

func getUserById(db *gorm.DB, id string) (*model.User, error) {
	var user model.User
	result := db.Where("id = ?", id).First(&user)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, errNotFound("User")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to load user")
	}
	return &user, nil
}

func getUserByUsername(db *gorm.DB, username string) (*model.User, error) {
	var user model.User
	result := db.Where("username = ?", username).First(&user)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, errNotFound("User")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to load user")
	}
	return &user, nil
}

// userDisplayMap resolves each distinct user id to its display projection
// with one chunked query instead of one query per row.
func userDisplayMap(db *gorm.DB, userIDs []string) (map[string]model.UserDisplay, error) {
	displays := make(map[string]model.UserDisplay)
	seen := make(map[string]bool)
	unique := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	for _, chunk := range utils.ChunkStrings(unique, queryChunkSize) {
		var users []model.User
		if err := db.Where("id IN ?", chunk).Find(&users).Error; err != nil {
			return nil, errors.Wrap(err, "failed to load user displays")
		}
		for i := range users {
			var display model.UserDisplay
			if err := copier.Copy(&display, &users[i]); err != nil {
				return nil, errors.Wrap(err, "failed to project user display")
			}
			displays[users[i].Id] = display
		}
	}
	return displays, nil
}

// sanitizeContent strips control characters that break rendering, keeping
// newlines and tabs, then trims surrounding whitespace.
func sanitizeContent(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(cleaned)
}
