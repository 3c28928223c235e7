package utils

import (
	"os"

	"github.com/DataDog/datadog-go/statsd"
)

// GetStatsdClient builds a statsd client against STATSD_ADDR. Returns nil
// without error when the address is unset, metrics are optional and all call
// sites must tolerate a nil client.
func GetStatsdClient() (*statsd.Client, error) {
	addr := os.Getenv("STATSD_ADDR")
	if addr == "" {
		return nil, nil
	}
	return statsd.New(addr, statsd.WithNamespace("socialmux."))
}
