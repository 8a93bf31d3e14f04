package empire

import (
	"encoding/json"

	"empire_bot/internal/domain"

	"github.com/shopspring/decimal"
)

// ======================================================================================
// REST
// ======================================================================================

// apiResponse is the envelope shared by most endpoints. Success is a pointer
// because several endpoints omit it on success.
type apiResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

func (r apiResponse) rejected() bool {
	return r.Success != nil && !*r.Success
}

type tradesResponse struct {
	apiResponse
	Data struct {
		Deposits []depositDTO `json:"deposits"`
	} `json:"data"`
}

type depositDTO struct {
	ID         domain.DepositID `json:"id"`
	TotalValue int64            `json:"total_value"` // cents
}

type metaResponse struct {
	User            json.RawMessage `json:"user"`
	SocketToken     string          `json:"socket_token"`
	SocketSignature string          `json:"socket_signature"`
}

type metaUser struct {
	ID int64 `json:"id"`
}

type securityTokenResponse struct {
	apiResponse
	Token string `json:"token"`
}

type inventoryResponse struct {
	apiResponse
	Data []inventoryItemDTO `json:"data"`
}

type inventoryItemDTO struct {
	ID          int64  `json:"id"`
	AssetID     int64  `json:"asset_id"`
	MarketName  string `json:"market_name"`
	MarketValue int64  `json:"market_value"` // cents
	Tradable    bool   `json:"tradable"`
}

// ======================================================================================
// Socket events
// ======================================================================================

type identifyPayload struct {
	UID                int64           `json:"uid"`
	Model              json.RawMessage `json:"model"`
	AuthorizationToken string          `json:"authorizationToken"`
	Signature          string          `json:"signature"`
}

type initPayload struct {
	Authenticated bool  `json:"authenticated"`
	ID            int64 `json:"id"`
}

type updatedItemPayload struct {
	ID          domain.DepositID `json:"id"`
	MarketName  string           `json:"market_name"`
	MarketValue int64            `json:"market_value"` // cents
}

type tradeStatusPayload struct {
	Type string `json:"type"`
	Data struct {
		ID         domain.DepositID `json:"id"`
		StatusText string           `json:"status_text"`
		Items      []struct {
			AssetID     int64           `json:"asset_id"`
			MarketName  string          `json:"market_name"`
			MarketValue decimal.Decimal `json:"market_value"` // coins
		} `json:"items"`
		Metadata struct {
			TradeURL string `json:"trade_url"`
		} `json:"metadata"`
	} `json:"data"`
}
