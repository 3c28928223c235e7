package api

import (
	"os"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/socialmux/socialmux/ratelimit"
	"github.com/socialmux/socialmux/utils"
	"github.com/socialmux/socialmux/utils/dotenv"
)

func TestMain(m *testing.M) {
	dotenv.LoadDotEnvsInTests()
	os.Exit(m.Run())
}

// newTestAPI assembles an API against a temp database with a steppable
// limiter clock. Stepping the returned time forward crosses limiter window
// boundaries without sleeping; the follow cooldowns read the wall clock and
// are cleared by backdating rows instead.
func newTestAPI(t *testing.T) (*API, *gorm.DB, *time.Time) {
	t.Helper()
	db, _ := utils.CreateTempDB(t)
	now := time.Now()
	limiter := ratelimit.NewWithClock(ratelimit.NewGormStore(db), func() time.Time { return now })
	api := &API{DB: db, Limiter: limiter}
	return api, db, &now
}
