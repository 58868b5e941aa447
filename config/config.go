// Package config turns the recognized-options schema of spec.md §6 into a
// constructed gosnmp.Client, the Go equivalent of the original's
// snmp_queries config glue (original_source/asyncsnmplib/utils.py).
package config

import (
	"fmt"
	"time"

	"github.com/cesbit/gosnmp"
)

// Config is the recognized-options schema: version/community for v1/v2c,
// username/auth/priv for v3.
type Config struct {
	Version        string // "1", "2c", or "3"; defaults to "2c"
	Port           int    // defaults to 161
	Community      string // v1/v2c only; defaults to "public"
	Username       string // v3 only
	AuthProtocol   string // "", "MD5", "SHA", "SHA224", "SHA256", "SHA384", "SHA512"
	AuthPassphrase string
	PrivProtocol   string // "", "DES", "AES"
	PrivPassphrase string
	MaxRows        int
	Timeouts       []time.Duration
}

// ConfigError reports an invalid or incomplete Config, matching the
// original's InvalidConfigException as a distinct type rather than a
// generic error.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "snmp config: " + e.Msg }

var authProtocols = map[string]gosnmp.AuthProtocol{
	"":       gosnmp.NoAuth,
	"MD5":    gosnmp.HMAC96MD5,
	"SHA":    gosnmp.HMAC96SHA,
	"SHA224": gosnmp.HMAC128SHA224,
	"SHA256": gosnmp.HMAC192SHA256,
	"SHA384": gosnmp.HMAC256SHA384,
	"SHA512": gosnmp.HMAC384SHA512,
}

var privProtocols = map[string]gosnmp.PrivProtocol{
	"":    gosnmp.NoPriv,
	"DES": gosnmp.CBC56DES,
	"AES": gosnmp.CFB128AES,
}

// NewClient builds the right client variant for cfg, applying the same
// defaults spec.md §6 specifies: community "public", version "2c".
func NewClient(host string, cfg Config) (gosnmp.Client, error) {
	version := cfg.Version
	if version == "" {
		version = "2c"
	}
	port := cfg.Port
	if port == 0 {
		port = 161
	}

	switch version {
	case "1", "2c":
		community := cfg.Community
		if community == "" {
			community = "public"
		}
		opts := []gosnmp.Option{gosnmp.WithPort(port), gosnmp.WithCommunity(community)}
		if cfg.MaxRows > 0 {
			opts = append(opts, gosnmp.WithMaxRows(cfg.MaxRows))
		}
		if len(cfg.Timeouts) > 0 {
			opts = append(opts, gosnmp.WithTimeouts(cfg.Timeouts))
		}
		if version == "1" {
			return gosnmp.NewV1(host, opts...)
		}
		return gosnmp.NewV2c(host, opts...)

	case "3":
		if cfg.Username == "" {
			return nil, &ConfigError{Msg: "v3 requires a username"}
		}
		authProto, ok := authProtocols[cfg.AuthProtocol]
		if !ok {
			return nil, &ConfigError{Msg: fmt.Sprintf("unrecognized auth protocol %q", cfg.AuthProtocol)}
		}
		privProto, ok := privProtocols[cfg.PrivProtocol]
		if !ok {
			return nil, &ConfigError{Msg: fmt.Sprintf("unrecognized priv protocol %q", cfg.PrivProtocol)}
		}
		if privProto != gosnmp.NoPriv && authProto == gosnmp.NoAuth {
			return nil, &ConfigError{Msg: "privacy requires authentication"}
		}
		opts := []gosnmp.V3Option{gosnmp.WithV3Port(port)}
		if authProto != gosnmp.NoAuth {
			opts = append(opts, gosnmp.WithAuth(authProto, cfg.AuthPassphrase))
		}
		if privProto != gosnmp.NoPriv {
			opts = append(opts, gosnmp.WithPriv(privProto, cfg.PrivPassphrase))
		}
		if cfg.MaxRows > 0 {
			opts = append(opts, gosnmp.WithV3MaxRows(cfg.MaxRows))
		}
		if len(cfg.Timeouts) > 0 {
			opts = append(opts, gosnmp.WithV3Timeouts(cfg.Timeouts))
		}
		return gosnmp.NewV3(host, cfg.Username, opts...)

	default:
		return nil, &ConfigError{Msg: fmt.Sprintf("unrecognized version %q", version)}
	}
}
