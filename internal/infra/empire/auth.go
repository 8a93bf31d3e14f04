package empire

import (
	"fmt"
	"net/http"
	"strings"

	"empire_bot/internal/domain"
)

const (
	cookieSession  = "PHPSESSID"
	cookieRemember = "do_not_share_this_with_anyone_not_even_staff"

	headerDeviceID = "x-empire-device-identifier"

	// defaultSecurityCode asks the marketplace for a standard device-bound token.
	defaultSecurityCode = "0000"
)

// Auth builds the cookie and header set that authenticates one account.
type Auth struct {
	acc *domain.Account
}

// NewAuth creates an Auth for the given account.
func NewAuth(acc *domain.Account) *Auth {
	return &Auth{acc: acc}
}

// GenerateHeaders returns the headers every REST call carries.
// withDevice adds the device identification used by security-token requests.
func (a *Auth) GenerateHeaders(withDevice bool) map[string]string {
	cookies := []string{
		fmt.Sprintf("%s=%s", cookieSession, a.acc.PHPSessID),
		fmt.Sprintf("%s=%s", cookieRemember, a.acc.Remember),
	}

	headers := map[string]string{
		"User-Agent": a.acc.UserAgent,
		"Accept":     "application/json",
	}

	if withDevice {
		headers[headerDeviceID] = a.acc.DeviceUUID
		if a.usesDefaultCode() && a.acc.DeviceAuth != "" {
			cookies = append(cookies, fmt.Sprintf("device_auth_%s=%s", a.acc.UserID, a.acc.DeviceAuth))
		}
	}

	headers["Cookie"] = strings.Join(cookies, "; ")
	return headers
}

// SocketHeader returns the handshake headers for the live socket.
func (a *Auth) SocketHeader() http.Header {
	h := make(http.Header)
	for k, v := range a.GenerateHeaders(false) {
		h.Set(k, v)
	}
	h.Set("Origin", a.acc.APIBase())
	return h
}

// SecurityTokenBody is the request body for a security-token request.
func (a *Auth) SecurityTokenBody() map[string]any {
	code := a.acc.SecurityCode
	if code == "" {
		code = defaultSecurityCode
	}
	body := map[string]any{
		"code": code,
		"uuid": a.acc.DeviceUUID,
	}
	if code == defaultSecurityCode {
		body["type"] = "standard"
		body["remember_device"] = false
	}
	return body
}

func (a *Auth) usesDefaultCode() bool {
	return a.acc.SecurityCode == "" || a.acc.SecurityCode == defaultSecurityCode
}
