package ratelimit

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/socialmux/socialmux/model"
)

/*
GormStore keeps one rate_limit_windows row per (name, key) and consumes under
SELECT ... FOR UPDATE. Bound into a mutation's transaction via WithTx, a
refused or failed mutation rolls its tokens back together with the domain
writes, and concurrent calls for the same user serialize on the row lock.
*/
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithTx(tx *gorm.DB) Store {
	return &GormStore{db: tx}
}

func (s *GormStore) Take(ctx context.Context, def Definition, key string, n int, now time.Time) (Result, error) {
	row, err := s.lockRow(ctx, def.Name, key, now)
	if err != nil {
		return Result{}, err
	}
	windowStart, count := currentWindow(row, def, now)
	if count+n > def.Rate {
		return Result{RetryAfter: windowStart.Add(def.Period).Sub(now)}, nil
	}
	row.WindowStart = windowStart
	row.Count = count + n
	if err := s.db.WithContext(ctx).Save(row).Error; err != nil {
		return Result{}, errors.Wrap(err, "failed to update rate limit window")
	}
	return Result{Ok: true}, nil
}

func (s *GormStore) Peek(ctx context.Context, def Definition, key string, n int, now time.Time) (Result, error) {
	var row model.RateLimitWindow
	err := s.db.WithContext(ctx).
		Where("name = ? AND key = ?", def.Name, key).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		if n > def.Rate {
			return Result{RetryAfter: def.Period}, nil
		}
		return Result{Ok: true}, nil
	}
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to read rate limit window")
	}
	windowStart, count := currentWindow(&row, def, now)
	if count+n > def.Rate {
		return Result{RetryAfter: windowStart.Add(def.Period).Sub(now)}, nil
	}
	return Result{Ok: true}, nil
}

// lockRow returns the (name, key) row locked FOR UPDATE, inserting a zero
// counter first if none exists yet. Two callers racing on the first insert
// converge through ON CONFLICT DO NOTHING plus a re-read.
func (s *GormStore) lockRow(ctx context.Context, name string, key string, now time.Time) (*model.RateLimitWindow, error) {
	db := s.db.WithContext(ctx)
	for attempt := 0; attempt < 2; attempt++ {
		var row model.RateLimitWindow
		err := db.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ? AND key = ?", name, key).
			First(&row).Error
		if err == nil {
			return &row, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, errors.Wrap(err, "failed to lock rate limit window")
		}
		fresh := model.RateLimitWindow{Name: name, Key: key, WindowStart: now, Count: 0}
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh)
		if res.Error != nil {
			return nil, errors.Wrap(res.Error, "failed to create rate limit window")
		}
		if res.RowsAffected == 1 {
			return &fresh, nil
		}
	}
	return nil, errors.New("failed to lock rate limit window after insert race")
}

// currentWindow folds an elapsed window into a fresh one without writing.
func currentWindow(row *model.RateLimitWindow, def Definition, now time.Time) (time.Time, int) {
	if now.Sub(row.WindowStart) >= def.Period {
		return now, 0
	}
	return row.WindowStart, row.Count
}
