// Package config holds the bridge configuration: static settings loaded
// from a JSON5 file plus the runtime toggles the operator can flip from
// Telegram without restarting the process.
package config

import "time"

// Config is the root configuration for the bridge.
type Config struct {
	Instagram InstagramConfig `json:"instagram"`
	Telegram  TelegramConfig  `json:"telegram"`
	Bridge    BridgeConfig    `json:"bridge"`
	Follow    FollowConfig    `json:"follow"`
	Store     StoreConfig     `json:"store,omitempty"`
}

// InstagramConfig configures the source platform session.
// SessionFile points at the cookie/session dump produced by the login
// tooling; the bridge never performs logins itself.
type InstagramConfig struct {
	Username    string `json:"username"`
	SessionFile string `json:"session_file"`
	RealtimeURL string `json:"realtime_url,omitempty"`
	Proxy       string `json:"proxy,omitempty"`
}

// TelegramConfig configures the destination bot and forum group.
// Token is NEVER read from the config file (secret) — env IGBRIDGE_TG_TOKEN only.
type TelegramConfig struct {
	Token   string `json:"-"`
	GroupID int64  `json:"group_id"`
	Proxy   string `json:"proxy,omitempty"`
}

// BridgeConfig tunes the relay core.
type BridgeConfig struct {
	DedupWindow   int      `json:"dedup_window,omitempty"`   // recent item-id capacity (default 1000)
	FilterWords   []string `json:"filter_words,omitempty"`   // blocked body prefixes
	VerifyTTLSec  int      `json:"verify_ttl_sec,omitempty"` // topic verification cache TTL (default 90)
	SendRPM       int      `json:"send_rpm,omitempty"`       // outbound Telegram API budget (default 20)
	MediaMaxBytes int64    `json:"media_max_bytes,omitempty"`
}

// FollowConfig holds the automation defaults. These seed the Runtime
// holder; the live values can be changed by operator commands.
type FollowConfig struct {
	AutoFollow      bool `json:"auto_follow"`
	AutoRequests    bool `json:"auto_requests"`
	MaxPerHour      int  `json:"max_per_hour,omitempty"`    // default 18
	DelayMinSec     int  `json:"delay_min_sec,omitempty"`   // default 4
	DelayMaxSec     int  `json:"delay_max_sec,omitempty"`   // default 12
	TickSec         int  `json:"tick_sec,omitempty"`        // default 30
	RequestDelaySec int  `json:"request_delay_sec,omitempty"` // sweep inter-item delay, default 3
}

// StoreConfig configures the persistent mapping store.
// MongoURI is NEVER read from the config file (secret) — env IGBRIDGE_MONGO_URI only.
// Empty URI means in-memory mappings only (lost on restart).
type StoreConfig struct {
	MongoURI string `json:"-"`
	Database string `json:"database,omitempty"`
}

// Enabled reports whether the bridge has everything it needs to run.
// A missing session or destination disables the bridge as a no-op
// rather than crashing at startup.
func (c *Config) Enabled() bool {
	return c.Instagram.SessionFile != "" && c.Telegram.Token != "" && c.Telegram.GroupID != 0
}

func (c *BridgeConfig) DedupCapacity() int {
	if c.DedupWindow > 0 {
		return c.DedupWindow
	}
	return 1000
}

func (c *BridgeConfig) VerifyTTL() time.Duration {
	if c.VerifyTTLSec > 0 {
		return time.Duration(c.VerifyTTLSec) * time.Second
	}
	return 90 * time.Second
}

func (c *BridgeConfig) MaxMediaBytes() int64 {
	if c.MediaMaxBytes > 0 {
		return c.MediaMaxBytes
	}
	return 20 * 1024 * 1024 // Telegram Bot API download limit
}

func (c *FollowConfig) Tick() time.Duration {
	if c.TickSec > 0 {
		return time.Duration(c.TickSec) * time.Second
	}
	return 30 * time.Second
}

func (c *FollowConfig) RequestDelay() time.Duration {
	if c.RequestDelaySec > 0 {
		return time.Duration(c.RequestDelaySec) * time.Second
	}
	return 3 * time.Second
}
