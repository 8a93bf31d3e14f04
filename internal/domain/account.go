package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// UserID identifies a marketplace account.
type UserID int64

func (u UserID) String() string {
	return fmt.Sprintf("%d", int64(u))
}

// SelfLockPolicy controls periodic self-lock renewal.
type SelfLockPolicy struct {
	Enabled     bool `yaml:"enabled"`
	PeriodHours int  `yaml:"period_hours"`
}

// Interval returns the renewal interval: the lock period plus one minute so
// a renewal never lands before the previous lock has expired.
func (p SelfLockPolicy) Interval() time.Duration {
	return time.Duration(p.PeriodHours)*time.Hour + time.Minute
}

// SteamCredentials are the web session values needed to send trade offers
// from the bot itself. An empty AccountName disables native sending.
type SteamCredentials struct {
	AccountName string `yaml:"account_name"`
	SteamID     string `yaml:"steam_id"`
	SessionID   string `yaml:"session_id"`
	LoginSecure string `yaml:"login_secure"`
}

// Account is one marketplace account the bot drives.
// It is treated as immutable once a session has started.
type Account struct {
	UserID    UserID `yaml:"user_id"`
	Origin    string `yaml:"origin"`
	UserAgent string `yaml:"user_agent"`

	// Session cookies
	PHPSessID string `yaml:"phpsessid"`
	Remember  string `yaml:"remember_token"`

	// Security token request
	SecurityCode string `yaml:"security_code"`
	DeviceUUID   string `yaml:"uuid"`
	DeviceAuth   string `yaml:"device_auth"`

	DelistThreshold decimal.Decimal `yaml:"delist_threshold"`
	SelfLock        SelfLockPolicy  `yaml:"self_lock"`

	Steam      SteamCredentials `yaml:"steam"`
	CSGOTrader bool             `yaml:"csgotrader"`
}

// HasNativeSteam reports whether offers can be sent directly through Steam.
func (a *Account) HasNativeSteam() bool {
	return a.Steam.AccountName != ""
}

// SocketURL is the live event endpoint for this account's origin.
func (a *Account) SocketURL() string {
	return fmt.Sprintf("wss://trade.%s/socket.io/?EIO=4&transport=websocket", a.Origin)
}

// APIBase is the REST base URL for this account's origin.
func (a *Account) APIBase() string {
	return "https://" + a.Origin
}
