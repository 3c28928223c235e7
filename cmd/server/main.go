package main

import (
	"context"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/socialmux/socialmux/bot"
	"github.com/socialmux/socialmux/ratelimit"
	"github.com/socialmux/socialmux/server"
	"github.com/socialmux/socialmux/server/api"
	"github.com/socialmux/socialmux/server/signal"
	. "github.com/socialmux/socialmux/utils"
	"github.com/socialmux/socialmux/utils/dotenv"
	. "github.com/socialmux/socialmux/utils/flag"
	. "github.com/socialmux/socialmux/utils/log"
)

func cleanup() {
	CloseProfiler()
	CloseTracer()
	Log.Info("api server shutdown")
}

// newLimiter picks the counter backend. Redis serves multi-instance
// deployments, the default gorm backend keeps single-instance setups free of
// extra infrastructure.
func newLimiter(db *gorm.DB) *ratelimit.Limiter {
	if os.Getenv("RATE_LIMIT_BACKEND") == "redis" {
		client, err := GetRedisClient()
		if err != nil {
			Log.Fatalln("cannot connect to redis:", err)
		}
		return ratelimit.New(ratelimit.NewRedisStore(client))
	}
	return ratelimit.New(ratelimit.NewGormStore(db))
}

func main() {
	ParseFlags()
	defer cleanup()

	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	InitLogger()
	InitTracer()
	InitProfiler()

	db, err := GetDBConnection()
	if err != nil {
		Log.Fatalln("cannot connect to database:", err)
	}
	if AutoMigrate {
		DatabaseSetupAndMigration(db)
	}

	bus := NewEventBus()
	channels := signal.NewChannels()
	statsdClient, err := GetStatsdClient()
	if err != nil {
		Log.Errorln("cannot create statsd client:", err)
	}
	relay := signal.NewRelay(bus, channels, statsdClient)
	go func() {
		if err := relay.Run(context.Background()); err != nil {
			Log.Errorln("signal relay stopped:", err)
		}
	}()

	handlers := &api.API{
		DB:       db,
		Limiter:  newLimiter(db),
		Bus:      bus,
		Channels: channels,
	}
	if webhook := os.Getenv("SLACK_REPORT_WEBHOOK_URL"); webhook != "" {
		handlers.Notifier = bot.NewSlackReportNotifier(webhook)
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		handlers.Responder = bot.NewOpenAIResponder(apiKey, os.Getenv("OPENAI_CHAT_MODEL"))
	}

	// Default With the Logger and Recovery middleware already attached
	router := gin.Default()
	router.Use(cors.Default())
	router.Use(gintrace.Middleware(ServiceName))

	server.RegisterRoutes(router, handlers, channels)

	Log.Info("api server starts up")
	router.Run(":8080")
}
