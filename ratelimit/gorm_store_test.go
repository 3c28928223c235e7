package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/socialmux/socialmux/model"
	"github.com/socialmux/socialmux/utils"
	"github.com/socialmux/socialmux/utils/dotenv"
)

func TestMain(m *testing.M) {
	dotenv.LoadDotEnvsInTests()
	os.Exit(m.Run())
}

// steppedLimiter returns a limiter on a fresh temp DB whose clock only moves
// when the test moves it.
func steppedLimiter(t *testing.T) (*Limiter, *gorm.DB, *time.Time) {
	db, _ := utils.CreateTempDB(t)
	now := time.Now()
	limiter := NewWithClock(NewGormStore(db), func() time.Time { return now })
	return limiter, db, &now
}

func windowCount(t *testing.T, db *gorm.DB, name string, key string) int {
	var row model.RateLimitWindow
	err := db.Where("name = ? AND key = ?", name, key).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return 0
	}
	require.NoError(t, err)
	return row.Count
}

func TestGormStoreLimit(t *testing.T) {
	limiter, db, _ := steppedLimiter(t)
	ctx := context.Background()

	t.Run("consumes until exhaustion", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			res, err := limiter.Limit(ctx, "user-1", RetweetsBurst)
			require.NoError(t, err)
			require.True(t, res.Ok)
		}
		res, err := limiter.Limit(ctx, "user-1", RetweetsBurst)
		require.NoError(t, err)
		require.False(t, res.Ok)
		require.True(t, res.RetryAfter > 0 && res.RetryAfter <= 30*time.Second)
	})

	t.Run("refusal consumes nothing", func(t *testing.T) {
		require.Equal(t, 3, windowCount(t, db, RetweetsBurst, "user-1"))
	})

	t.Run("keys are isolated", func(t *testing.T) {
		res, err := limiter.Limit(ctx, "user-2", RetweetsBurst)
		require.NoError(t, err)
		require.True(t, res.Ok)
	})
}

func TestGormStoreWindowReset(t *testing.T) {
	limiter, db, now := steppedLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Limit(ctx, "user-1", RetweetsBurst)
		require.NoError(t, err)
		require.True(t, res.Ok)
	}
	res, err := limiter.Limit(ctx, "user-1", RetweetsBurst)
	require.NoError(t, err)
	require.False(t, res.Ok)

	*now = now.Add(30 * time.Second)
	res, err = limiter.Limit(ctx, "user-1", RetweetsBurst)
	require.NoError(t, err)
	require.True(t, res.Ok)
	require.Equal(t, 1, windowCount(t, db, RetweetsBurst, "user-1"))
}

func TestCheckDoesNotConsume(t *testing.T) {
	limiter, _, _ := steppedLimiter(t)
	ctx := context.Background()

	res, err := limiter.Check(ctx, "user-1", CommentsBurst, 5)
	require.NoError(t, err)
	require.True(t, res.Ok)
	res, err = limiter.Check(ctx, "user-1", CommentsBurst, 6)
	require.NoError(t, err)
	require.False(t, res.Ok)

	// All five tokens are still there.
	for i := 0; i < 5; i++ {
		res, err := limiter.Limit(ctx, "user-1", CommentsBurst)
		require.NoError(t, err)
		require.True(t, res.Ok)
	}
	res, err = limiter.Limit(ctx, "user-1", CommentsBurst)
	require.NoError(t, err)
	require.False(t, res.Ok)
}

func TestConsumeTiers(t *testing.T) {
	limiter, db, _ := steppedLimiter(t)
	ctx := context.Background()

	t.Run("burst tier refuses sixth call", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			require.NoError(t, limiter.ConsumeTiers(ctx, "user-1", CommentsTiers...))
		}
		err := limiter.ConsumeTiers(ctx, "user-1", CommentsTiers...)
		require.Error(t, err)
		require.Contains(t, err.Error(), "Rate limit exceeded: too many comments in a short period")
	})

	t.Run("refusal leaves every tier untouched", func(t *testing.T) {
		require.Equal(t, 5, windowCount(t, db, CommentsBurst, "user-1"))
		require.Equal(t, 5, windowCount(t, db, CommentsHourly, "user-1"))
		require.Equal(t, 5, windowCount(t, db, CommentsDaily, "user-1"))
	})

	t.Run("hourly tier reported once burst recovers", func(t *testing.T) {
		limiter, db, now := steppedLimiter(t)
		// 20/h on comments: exhaust in bursts of 5 with resets in between.
		for burst := 0; burst < 4; burst++ {
			for i := 0; i < 5; i++ {
				require.NoError(t, limiter.ConsumeTiers(ctx, "user-1", CommentsTiers...))
			}
			*now = now.Add(31 * time.Second)
		}
		err := limiter.ConsumeTiers(ctx, "user-1", CommentsTiers...)
		require.Error(t, err)
		require.Contains(t, err.Error(), "too many comments this hour")
		require.Equal(t, 20, windowCount(t, db, CommentsHourly, "user-1"))
	})
}

func TestConsumeTiersRollsBackWithTransaction(t *testing.T) {
	limiter, db, _ := steppedLimiter(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := limiter.Within(tx).ConsumeTiers(ctx, "user-1", RetweetsTiers...); err != nil {
			return err
		}
		return errors.New("domain write failed")
	})
	require.Error(t, err)

	// The aborted mutation gave its tokens back.
	require.Equal(t, 0, windowCount(t, db, RetweetsBurst, "user-1"))
	require.Equal(t, 0, windowCount(t, db, RetweetsDaily, "user-1"))
}
