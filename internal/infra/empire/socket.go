package empire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"empire_bot/internal/domain"
	"empire_bot/internal/event"
	"empire_bot/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	maxRetries         = 10
	defaultReadTimeout = 60 * time.Second
	handshakeTimeout   = 10 * time.Second
	eventBuffer        = 256
)

// Socket is the live event transport of one account: Socket.IO v4 over a
// plain websocket. It reconnects on its own and reports every namespace
// connect as an event.Connected, so the session can identify again.
type Socket struct {
	url       string
	header    http.Header
	namespace string
	events    chan event.Event
	logger    *slog.Logger

	conn        *websocket.Conn
	mu          sync.RWMutex
	writeMu     sync.Mutex
	connected   bool
	readTimeout time.Duration
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewSocket creates the transport for acc. An empty url uses the account origin.
func NewSocket(acc *domain.Account, url string) *Socket {
	if url == "" {
		url = acc.SocketURL()
	}
	return &Socket{
		url:         url,
		header:      NewAuth(acc).SocketHeader(),
		namespace:   "/",
		events:      make(chan event.Event, eventBuffer),
		logger:      slog.Default().With("module", "empire_socket", "user_id", acc.UserID),
		readTimeout: defaultReadTimeout,
	}
}

// Events returns the decoded event stream.
func (s *Socket) Events() <-chan event.Event {
	return s.events
}

// Connect starts the connection loop in the background.
func (s *Socket) Connect(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.connectionLoop(ctx)
	return nil
}

// Identify performs the authentication handshake with the values from RequestMeta.
func (s *Socket) Identify(meta *domain.Meta) error {
	return s.emit(emitIdentify, identifyPayload{
		UID:                meta.UserID,
		Model:              meta.User,
		AuthorizationToken: meta.SocketToken,
		Signature:          meta.SocketSignature,
	})
}

// Subscribe asks for item updates.
func (s *Socket) Subscribe() error {
	return s.emit(emitSubscribe, 1)
}

// Connected reports whether the socket is currently open.
func (s *Socket) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Socket) connectionLoop(ctx context.Context) {
	defer s.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.connect(ctx); err != nil {
			s.logger.Warn("Socket connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			delay := infra.CalculateBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retryCount = 0
		err := s.readLoop(ctx)
		if ctx.Err() != nil {
			return
		}
		s.send(ctx, &event.Disconnected{BaseEvent: event.BaseEvent{Ts: time.Now()}, Err: err})
	}
}

func (s *Socket) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		return domain.NewNetworkError("dial", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	s.logger.Info("Socket connected", slog.String("url", s.url))
	return nil
}

func (s *Socket) readLoop(ctx context.Context) error {
	defer s.closeConnection()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.mu.RLock()
		conn := s.conn
		timeout := s.readTimeout
		s.mu.RUnlock()
		if conn == nil {
			return domain.ErrNotConnected
		}
		conn.SetReadDeadline(time.Now().Add(timeout))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return domain.NewNetworkError("read", err)
		}
		if err := s.handleMessage(ctx, msg); err != nil {
			return err
		}
	}
}

// handleMessage processes one frame. A non-nil error drops the connection.
func (s *Socket) handleMessage(ctx context.Context, msg []byte) error {
	f, err := parseFrame(msg)
	if err != nil {
		s.logger.Warn("Malformed frame", slog.Any("error", err), slog.String("frame", truncate(string(msg), 128)))
		return nil
	}

	switch f.Kind {
	case frameOpen:
		if f.Open.PingInterval > 0 {
			s.mu.Lock()
			s.readTimeout = time.Duration(f.Open.PingInterval+f.Open.PingTimeout) * time.Millisecond
			s.mu.Unlock()
		}
		return s.threadSafeWrite(websocket.TextMessage, encodeConnect(s.namespace))

	case framePing:
		return s.threadSafeWrite(websocket.TextMessage, []byte("3"))

	case frameConnect:
		s.send(ctx, &event.Connected{BaseEvent: event.BaseEvent{Ts: time.Now()}})

	case frameClose, frameDisconnect:
		return domain.NewNetworkError("read", fmt.Errorf("server closed namespace %s", f.Namespace))

	case frameConnectError:
		return domain.NewNetworkError("connect", fmt.Errorf("namespace rejected: %s", string(f.Data)))

	case frameEvent:
		evs, err := decodeEvent(f.Event, f.Data, time.Now())
		if err != nil {
			s.logger.Warn("Failed to decode event", slog.String("event", f.Event), slog.Any("error", err))
			return nil
		}
		for _, ev := range evs {
			s.send(ctx, ev)
		}
	}
	return nil
}

// send hands ev to the session. It blocks rather than drops so trade
// status changes are never lost while the session is busy.
func (s *Socket) send(ctx context.Context, ev event.Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

func (s *Socket) emit(name string, data any) error {
	b, err := encodeEvent(s.namespace, name, data)
	if err != nil {
		return err
	}
	return s.threadSafeWrite(websocket.TextMessage, b)
}

func (s *Socket) threadSafeWrite(msgType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return domain.ErrNotConnected
	}
	return s.conn.WriteMessage(msgType, data)
}

func (s *Socket) closeConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connected = false
}

// Disconnect stops the connection loop and closes the socket.
func (s *Socket) Disconnect() {
	if s.cancel != nil {
		s.cancel()
	}
	s.closeConnection()
	s.wg.Wait()
}
