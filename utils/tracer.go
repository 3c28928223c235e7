package utils

import (
	"github.com/sirupsen/logrus"
	Flag "github.com/socialmux/socialmux/utils/flag"
	Logger "github.com/socialmux/socialmux/utils/log"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// InitTracer starts the Datadog tracer. Call once from main, prod only.
func InitTracer() {
	env := "development"
	if !Flag.IsDevelopment {
		env = "production"
	}

	tracer.Start(
		tracer.WithService(Flag.ServiceName),
		tracer.WithEnv(env),
	)

	Logger.Log.WithFields(
		logrus.Fields{"service": Flag.ServiceName, "is_development": Flag.IsDevelopment},
	).Info("tracer initialized")
}

// Stop tracer, OK to be closed multiple times
func CloseTracer() {
	tracer.Stop()
}
