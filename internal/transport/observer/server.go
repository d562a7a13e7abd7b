package observer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"hivecore.ai/internal/observerproto"
	"hivecore.ai/internal/sim/gameloop"
)

// Server fans each tick's decisions out to websocket observers. It is a
// gameloop.TickSink; WriteTick never blocks on a slow client.
type Server struct {
	tickRateHz int
	log        *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu       sync.Mutex
	sessions map[string]*session
	last     gameloop.TickLogEntry
}

type session struct {
	out   chan []byte
	rooms map[string]struct{}
}

func NewServer(tickRateHz int, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		tickRateHz: tickRateHz,
		log:        logger,
		sessions:   map[string]*session{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/v1/observer/bootstrap", s.BootstrapHandler())
	mux.Handle("/v1/observer/ws", s.WSHandler())
	return mux
}

// Sessions is the number of subscribed observers.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) WriteTick(entry gameloop.TickLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = entry
	for id, sess := range s.sessions {
		b, err := json.Marshal(tickMsg(entry, sess.rooms))
		if err != nil {
			return err
		}
		select {
		case sess.out <- b:
		default:
			s.log.Printf("observer %s lagging, dropped tick %d", id, entry.Tick)
		}
	}
	return nil
}

func tickMsg(entry gameloop.TickLogEntry, rooms map[string]struct{}) observerproto.TickMsg {
	msg := observerproto.TickMsg{
		Type:            observerproto.TypeTick,
		ProtocolVersion: observerproto.Version,
		Tick:            entry.Tick,
		Digest:          entry.Digest,
		Rooms:           entry.Rooms,
	}
	if len(rooms) == 0 {
		return msg
	}
	msg.Rooms = nil
	for _, r := range entry.Rooms {
		if _, ok := rooms[r.Room]; ok {
			msg.Rooms = append(msg.Rooms, r)
		}
	}
	return msg
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		s.mu.Lock()
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			Tick:            s.last.Tick,
			TickRateHz:      s.tickRateHz,
			Rooms:           []string{},
		}
		for _, r := range s.last.Rooms {
			resp.Rooms = append(resp.Rooms, r.Room)
		}
		s.mu.Unlock()

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		sub, err := readSubscribe(conn)
		if err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		sess := &session{out: make(chan []byte, 8), rooms: roomSet(sub.Rooms)}
		s.mu.Lock()
		s.sessions[sid] = sess
		s.mu.Unlock()
		s.log.Printf("observer %s subscribed from %s", sid, r.RemoteAddr)
		defer func() {
			s.mu.Lock()
			delete(s.sessions, sid)
			s.mu.Unlock()
			s.log.Printf("observer %s left", sid)
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			sub, err := readSubscribe(conn)
			if err != nil {
				var bad *subscribeError
				if errors.As(err, &bad) {
					continue
				}
				break
			}
			s.mu.Lock()
			sess.rooms = roomSet(sub.Rooms)
			s.mu.Unlock()
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

type subscribeError struct{ msg string }

func (e *subscribeError) Error() string { return e.msg }

// readSubscribe reads one message. Connection failures are returned as is;
// a readable but invalid message yields a *subscribeError.
func readSubscribe(conn *websocket.Conn) (observerproto.SubscribeMsg, error) {
	var sub observerproto.SubscribeMsg
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return sub, err
	}
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, &subscribeError{msg: "bad subscribe"}
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, &subscribeError{msg: "expected SUBSCRIBE"}
	}
	return sub, nil
}

func roomSet(rooms []string) map[string]struct{} {
	if len(rooms) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(rooms))
	for _, r := range rooms {
		out[r] = struct{}{}
	}
	return out
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
