package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/joho/godotenv"
)

// dotenvFile is loaded before reading the environment. Variables that
// are already set in the process win over the file.
var dotenvFile = ".env"

// parseEnv overlays values from the environment. A missing .env file is
// fine; a malformed one or an unparsable number panics.
func parseEnv(config *Config) {
	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	flagx.EnvString("HTTP_ADDR", &config.EndpointAddrHTTP)
	flagx.EnvString("GRPC_ADDR", &config.EndpointAddrGRPC)
	flagx.EnvString("DATABASE_DSN", &config.DatabaseDSN)
	flagx.EnvString("RP_ID", &config.RelyingPartyID)
	flagx.EnvString("FRONTEND_ORIGIN", &config.FrontendOrigin)
	flagx.EnvString("SESSION_SECRET", &config.SessionSecret)
	flagx.EnvString("CHALLENGE_BACKEND", &config.ChallengeBackend)
	flagx.EnvString("REDIS_ADDR", &config.RedisAddr)
	flagx.EnvString("SWEEP_SCHEDULE", &config.SweepSchedule)
	flagx.EnvString("LOG_LEVEL", &config.LogLevel)

	if err := flagx.EnvInt64("SESSION_LIFETIME_MS", &config.SessionLifetimeMs); err != nil {
		panic(err)
	}
	if err := flagx.EnvDuration("ACCOUNT_RETENTION", &config.AccountRetention); err != nil {
		panic(err)
	}
	if err := flagx.EnvDuration("PENDING_DEVICE_TTL", &config.PendingDeviceTTL); err != nil {
		panic(err)
	}

	if _, ok := os.LookupEnv("ALLOW_INSECURE_SIGNATURES"); ok {
		config.AllowInsecureSignatures = flagx.EnvFlag("ALLOW_INSECURE_SIGNATURES")
	}
	if env, ok := os.LookupEnv("APP_ENV"); ok {
		config.Production = strings.EqualFold(strings.TrimSpace(env), "production")
	}
}
