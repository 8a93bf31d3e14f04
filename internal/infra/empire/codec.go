package empire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"empire_bot/internal/domain"
	"empire_bot/internal/event"
)

// Engine.IO / Socket.IO v4 text framing.
//
//	0{...}            engine open
//	2 / 3             ping / pong
//	40[/ns,]{...}     namespace connected
//	41[/ns,]          namespace disconnected
//	42[/ns,][ack]["event",data]
//	44[/ns,]{...}     connect error
type frameKind int

const (
	frameUnknown frameKind = iota
	frameOpen
	frameClose
	framePing
	framePong
	frameConnect
	frameDisconnect
	frameEvent
	frameConnectError
)

type frame struct {
	Kind      frameKind
	Namespace string
	Event     string
	Data      json.RawMessage
	Open      openPayload
}

type openPayload struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"` // ms
	PingTimeout  int    `json:"pingTimeout"`  // ms
}

var errEmptyFrame = errors.New("empty frame")

func parseFrame(msg []byte) (frame, error) {
	if len(msg) == 0 {
		return frame{}, errEmptyFrame
	}

	switch msg[0] {
	case '0':
		var f frame
		f.Kind = frameOpen
		if len(msg) > 1 {
			if err := json.Unmarshal(msg[1:], &f.Open); err != nil {
				return frame{}, fmt.Errorf("open payload: %w", err)
			}
		}
		return f, nil
	case '1':
		return frame{Kind: frameClose}, nil
	case '2':
		return frame{Kind: framePing}, nil
	case '3':
		return frame{Kind: framePong}, nil
	case '4':
		return parsePacket(msg[1:])
	}
	return frame{Kind: frameUnknown}, nil
}

func parsePacket(p []byte) (frame, error) {
	if len(p) == 0 {
		return frame{}, errEmptyFrame
	}

	kind := p[0]
	ns, rest := splitNamespace(p[1:])

	switch kind {
	case '0':
		return frame{Kind: frameConnect, Namespace: ns, Data: json.RawMessage(rest)}, nil
	case '1':
		return frame{Kind: frameDisconnect, Namespace: ns}, nil
	case '4':
		return frame{Kind: frameConnectError, Namespace: ns, Data: json.RawMessage(rest)}, nil
	case '2':
		// Skip ack id
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		var args []json.RawMessage
		if err := json.Unmarshal(rest[i:], &args); err != nil {
			return frame{}, fmt.Errorf("event args: %w", err)
		}
		if len(args) == 0 {
			return frame{}, errors.New("event without name")
		}
		var name string
		if err := json.Unmarshal(args[0], &name); err != nil {
			return frame{}, fmt.Errorf("event name: %w", err)
		}
		f := frame{Kind: frameEvent, Namespace: ns, Event: name}
		if len(args) > 1 {
			f.Data = args[1]
		}
		return f, nil
	}
	return frame{Kind: frameUnknown}, nil
}

// splitNamespace strips a "/ns," prefix.
func splitNamespace(p []byte) (string, []byte) {
	if len(p) == 0 || p[0] != '/' {
		return "/", p
	}
	if i := bytes.IndexByte(p, ','); i >= 0 {
		return string(p[:i]), p[i+1:]
	}
	return string(p), nil
}

func encodeConnect(namespace string) []byte {
	if namespace == "" || namespace == "/" {
		return []byte("40")
	}
	return []byte("40" + namespace + ",")
}

func encodeEvent(namespace, name string, data any) ([]byte, error) {
	payload, err := json.Marshal([]any{name, data})
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString("42")
	if namespace != "" && namespace != "/" {
		b.WriteString(namespace)
		b.WriteByte(',')
	}
	b.Write(payload)
	return []byte(b.String()), nil
}

// Live event names.
const (
	eventInit        = "init"
	eventUpdatedItem = "p2p_updated_item"
	eventTradeStatus = "trade_status"

	emitIdentify  = "identify"
	emitSubscribe = "p2p/new-items/subscribe"
)

// decodeEvent turns a socket event into zero or more domain events.
// Unknown event names yield nil without error.
func decodeEvent(name string, data json.RawMessage, now time.Time) ([]event.Event, error) {
	switch name {
	case eventInit:
		var p initPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if !p.Authenticated {
			return nil, nil
		}
		return []event.Event{&event.Authenticated{BaseEvent: event.BaseEvent{Ts: now}, UserID: p.ID}}, nil

	case eventUpdatedItem:
		items, err := decodeList[updatedItemPayload](unquote(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out := make([]event.Event, 0, len(items))
		for _, it := range items {
			out = append(out, &event.PriceUpdate{
				BaseEvent:   event.BaseEvent{Ts: now},
				DepositID:   it.ID,
				MarketName:  it.MarketName,
				MarketValue: it.MarketValue,
			})
		}
		return out, nil

	case eventTradeStatus:
		statuses, err := decodeList[tradeStatusPayload](unquote(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out := make([]event.Event, 0, len(statuses))
		for _, st := range statuses {
			items := make([]domain.Item, 0, len(st.Data.Items))
			for _, it := range st.Data.Items {
				items = append(items, domain.Item{
					AssetID:     it.AssetID,
					MarketName:  it.MarketName,
					MarketValue: domain.CoinsToCents(it.MarketValue),
				})
			}
			out = append(out, &event.TradeStatus{
				BaseEvent:  event.BaseEvent{Ts: now},
				DepositID:  st.Data.ID,
				TradeType:  st.Type,
				StatusText: st.Data.StatusText,
				Items:      items,
				TradeURL:   st.Data.Metadata.TradeURL,
			})
		}
		return out, nil
	}
	return nil, nil
}

// unquote unwraps payloads that arrive as a JSON-encoded string.
func unquote(data json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return trimmed
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return trimmed
	}
	return json.RawMessage(s)
}

// decodeList accepts either a single object or an array of objects.
func decodeList[T any](data json.RawMessage) ([]T, error) {
	if len(data) == 0 {
		return nil, errEmptyFrame
	}
	if data[0] == '[' {
		var list []T
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}
