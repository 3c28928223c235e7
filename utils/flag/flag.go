/*
flag Package set up cli flags shared across services

Usage:

	Flags listed in this package are shared across boundaries and service-agnostic
	For service dependent flags please define in their respective package
*/

package flag

import (
	"flag"
)

const (
	APIServer = "api_server"
)

var (
	IsDevelopment bool
	ServiceName   string
	ByPassAuth    bool
	AutoMigrate   bool
)

func init() {
	flag.BoolVar(&IsDevelopment, "dev", true, "set to true if the current run is for development. default value is true")
	flag.StringVar(&ServiceName, "service", APIServer, "name the service reports to logging and metrics")
	flag.BoolVar(&ByPassAuth, "bypass_auth", false, "set to true to skip JWT validation, local development only")
	flag.BoolVar(&AutoMigrate, "migrate", true, "run database auto migration on startup")
}

// ParseFlags must be called once in main, after all packages had the chance to
// register their own flags.
func ParseFlags() {
	flag.Parse()
}
