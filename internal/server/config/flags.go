package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":4000")
//	-g string   gRPC bind address (e.g. ":50051")
//	-d string   PostgreSQL DSN
//	-r string   relying party id
//	-o string   frontend origin used in link URLs
//	-s string   session signing secret
//	-l int      session lifetime, milliseconds
//	-b string   challenge backend: postgres or redis
//	-k string   redis address
//	-w string   sweeper cron schedule
//	-v string   log level
//
// The insecure-signature switch has no flag; it is only read from the
// config file or the environment.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-r", "-o", "-s", "-l", "-b", "-k", "-w", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to serve HTTP on")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to serve gRPC on")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RelyingPartyID, "r", config.RelyingPartyID, "relying party id")
	fs.StringVar(&config.FrontendOrigin, "o", config.FrontendOrigin, "frontend origin")
	fs.StringVar(&config.SessionSecret, "s", config.SessionSecret, "session secret")
	fs.Int64Var(&config.SessionLifetimeMs, "l", config.SessionLifetimeMs, "session lifetime (in milliseconds)")
	fs.StringVar(&config.ChallengeBackend, "b", config.ChallengeBackend, "challenge backend (postgres|redis)")
	fs.StringVar(&config.RedisAddr, "k", config.RedisAddr, "redis address")
	fs.StringVar(&config.SweepSchedule, "w", config.SweepSchedule, "sweeper schedule")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
