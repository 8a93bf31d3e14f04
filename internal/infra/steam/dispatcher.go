package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"empire_bot/internal/domain"
	"empire_bot/internal/infra"
)

const (
	BaseURL = "https://steamcommunity.com"

	appIDCSGO     = 730
	contextIDCSGO = "2"

	// steamID64Base converts a 32-bit account id into a SteamID64.
	steamID64Base = 76561197960265728
)

// Dispatcher sends trade offers through the Steam web session of the bot account.
type Dispatcher struct {
	creds      domain.SteamCredentials
	userAgent  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDispatcher creates a dispatcher for acc. An empty baseURL uses steamcommunity.com.
func NewDispatcher(acc *domain.Account, baseURL string) *Dispatcher {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Dispatcher{
		creds:      acc.Steam,
		userAgent:  acc.UserAgent,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     slog.Default().With("module", "steam_dispatcher", "account", acc.Steam.AccountName),
	}
}

var _ domain.OfferDispatcher = (*Dispatcher)(nil)

type asset struct {
	AppID     int    `json:"appid"`
	ContextID string `json:"contextid"`
	Amount    int    `json:"amount"`
	AssetID   string `json:"assetid"`
}

type offerSide struct {
	Assets   []asset `json:"assets"`
	Currency []any   `json:"currency"`
	Ready    bool    `json:"ready"`
}

type tradeOffer struct {
	NewVersion bool      `json:"newversion"`
	Version    int       `json:"version"`
	Me         offerSide `json:"me"`
	Them       offerSide `json:"them"`
}

type sendResponse struct {
	TradeOfferID string `json:"tradeofferid"`
	StrError     string `json:"strError"`
}

// TradeLink is the partner and access token carried by a trade URL.
type TradeLink struct {
	Partner uint32
	Token   string
}

// SteamID64 returns the partner's 64-bit Steam id.
func (l TradeLink) SteamID64() string {
	return strconv.FormatUint(steamID64Base+uint64(l.Partner), 10)
}

// ParseTradeURL extracts partner and token from a Steam trade URL.
func ParseTradeURL(raw string) (TradeLink, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return TradeLink{}, fmt.Errorf("invalid trade url: %w", err)
	}
	q := u.Query()
	partner, err := strconv.ParseUint(q.Get("partner"), 10, 32)
	if err != nil {
		return TradeLink{}, fmt.Errorf("invalid trade url partner %q", q.Get("partner"))
	}
	token := q.Get("token")
	if token == "" {
		return TradeLink{}, errors.New("trade url without token")
	}
	return TradeLink{Partner: uint32(partner), Token: token}, nil
}

// SendOffer offers items to the owner of tradeURL.
func (d *Dispatcher) SendOffer(ctx context.Context, items []domain.Item, tradeURL string, userID domain.UserID) error {
	err := d.send(ctx, items, tradeURL, userID)
	infra.RecordRequest("steamSendOffer", err)
	return err
}

func (d *Dispatcher) send(ctx context.Context, items []domain.Item, tradeURL string, userID domain.UserID) error {
	link, err := ParseTradeURL(tradeURL)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.New("no items to offer")
	}

	offer := tradeOffer{
		NewVersion: true,
		Version:    len(items) + 1,
		Me:         offerSide{Assets: make([]asset, 0, len(items)), Currency: []any{}},
		Them:       offerSide{Assets: []asset{}, Currency: []any{}},
	}
	for _, it := range items {
		offer.Me.Assets = append(offer.Me.Assets, asset{
			AppID:     appIDCSGO,
			ContextID: contextIDCSGO,
			Amount:    1,
			AssetID:   strconv.FormatInt(it.AssetID, 10),
		})
	}

	offerJSON, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	paramsJSON, err := json.Marshal(map[string]string{"trade_offer_access_token": link.Token})
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("sessionid", d.creds.SessionID)
	form.Set("serverid", "1")
	form.Set("partner", link.SteamID64())
	form.Set("tradeoffermessage", fmt.Sprintf("Deposit for account %s", userID))
	form.Set("json_tradeoffer", string(offerJSON))
	form.Set("captcha", "")
	form.Set("trade_offer_create_params", string(paramsJSON))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/tradeoffer/new/send", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Referer", tradeURL)
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Cookie", fmt.Sprintf("sessionid=%s; steamLoginSecure=%s", d.creds.SessionID, d.creds.LoginSecure))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return &domain.RequestError{Op: "steamSendOffer", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var out sendResponse
	_ = json.Unmarshal(body, &out)

	if resp.StatusCode != http.StatusOK || out.TradeOfferID == "" {
		msg := out.StrError
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return &domain.RequestError{Op: "steamSendOffer", Status: resp.StatusCode, Body: msg}
	}

	d.logger.Info("Trade offer sent", slog.String("offer_id", out.TradeOfferID), slog.Int("items", len(items)))
	return nil
}
