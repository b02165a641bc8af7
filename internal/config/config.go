// Package config loads the server's tunable settings: defaults, overlaid
// by environment variables and CLI flags, the same layering the pack's
// market-making config layers use. The teacher carries no configuration
// package of its own (its constants are hardcoded in cmd/client/client.go's
// flag.FlagSet); this generalizes that flag surface into a viper-backed
// loader so the room-tunable constants (spec §6) can be set without a
// rebuild.
package config

import (
	"time"

	"figgie/internal/market"
	"figgie/internal/room"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is everything main needs to wire up a server: the per-room
// defaults plus process-level transport/logging settings.
type Config struct {
	Room room.Config

	TCPAddress string
	TCPPort    int
	WSAddress  string
	WSPort     int
	WSPath     string

	LogLevel string
}

// Load parses args (normally os.Args[1:]) against the registered flags,
// overlays FIGGIE_-prefixed environment variables, and returns the
// resulting Config. Flags are registered on a standard pflag.FlagSet and
// bound through viper.BindPFlag, matching the pack's config-layer repos.
func Load(args []string) (Config, error) {
	fs := pflag.NewFlagSet("figgie-server", pflag.ContinueOnError)

	fs.String("tcp-address", "0.0.0.0", "bind address for the TCP transport")
	fs.Int("tcp-port", 58828, "port for the TCP transport")
	fs.String("ws-address", "0.0.0.0", "bind address for the websocket transport")
	fs.Int("ws-port", 58829, "port for the websocket transport")
	fs.String("ws-path", "/figgie", "HTTP path the websocket transport upgrades on")
	fs.String("log-level", "Info", "log level: Debug, Info, or Error")

	fs.Duration("round-duration", 240*time.Second, "length of one trading round")
	fs.Int64("pot", 100, "prize pool split among gold-majority holders")
	fs.Int64("per-gold-card-bonus", 10, "bonus paid per gold card held at round end")
	fs.Int64("max-price", 10000, "maximum resting order price")
	fs.Duration("idle-timeout", 10*time.Minute, "stored in the room config; empty rooms are reaped at the server's next one-minute sweep regardless of this value")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("FIGGIE")
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, err
	}

	return Config{
		Room: room.Config{
			RoundDuration:    v.GetDuration("round-duration"),
			Pot:              market.Price(v.GetInt64("pot")),
			PerGoldCardBonus: market.Price(v.GetInt64("per-gold-card-bonus")),
			MaxPrice:         market.Price(v.GetInt64("max-price")),
			IdleTimeout:      v.GetDuration("idle-timeout"),
		},
		TCPAddress: v.GetString("tcp-address"),
		TCPPort:    v.GetInt("tcp-port"),
		WSAddress:  v.GetString("ws-address"),
		WSPort:     v.GetInt("ws-port"),
		WSPath:     v.GetString("ws-path"),
		LogLevel:   v.GetString("log-level"),
	}, nil
}
