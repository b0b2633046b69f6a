package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations use
// timex.Duration so both "24h" and integer nanoseconds are accepted.
// Booleans are pointers so an absent key leaves the current value alone.
type JsonConfig struct {
	EndpointAddrHTTP        string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC        string         `json:"endpoint_addr_grpc"`
	DatabaseDSN             string         `json:"database_dsn"`
	RelyingPartyID          string         `json:"relying_party_id"`
	FrontendOrigin          string         `json:"frontend_origin"`
	SessionSecret           string         `json:"session_secret"`
	SessionLifetimeMs       int64          `json:"session_lifetime_ms"`
	AllowInsecureSignatures *bool          `json:"allow_insecure_signatures"`
	Production              *bool          `json:"production"`
	ChallengeBackend        string         `json:"challenge_backend"`
	RedisAddr               string         `json:"redis_addr"`
	SweepSchedule           string         `json:"sweep_schedule"`
	AccountRetention        timex.Duration `json:"account_retention"`
	PendingDeviceTTL        timex.Duration `json:"pending_device_ttl"`
	LogLevel                string         `json:"log_level"`
}

// parseJson overlays values from the file named by -c/-config (or the
// CONFIG environment variable). Keys that are absent or zero keep the
// current value. An unreadable or invalid file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RelyingPartyID, c.RelyingPartyID)
	setString(&config.FrontendOrigin, c.FrontendOrigin)
	setString(&config.SessionSecret, c.SessionSecret)
	setString(&config.ChallengeBackend, c.ChallengeBackend)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.SweepSchedule, c.SweepSchedule)
	setString(&config.LogLevel, c.LogLevel)

	if c.SessionLifetimeMs != 0 {
		config.SessionLifetimeMs = c.SessionLifetimeMs
	}
	if c.AllowInsecureSignatures != nil {
		config.AllowInsecureSignatures = *c.AllowInsecureSignatures
	}
	if c.Production != nil {
		config.Production = *c.Production
	}
	if c.AccountRetention.Duration != 0 {
		config.AccountRetention = c.AccountRetention.Duration
	}
	if c.PendingDeviceTTL.Duration != 0 {
		config.PendingDeviceTTL = c.PendingDeviceTTL.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
