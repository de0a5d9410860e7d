// Package server implements the session-gated WebSocket broadcast
// server: connection admission against the session code or admin
// password, chat fan-out, moderation enforcement, and forwarding of
// admin gesture frames to the remote input controller.
package server

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/sumsupee/chatoneverything/internal/agent"
	"github.com/sumsupee/chatoneverything/internal/audit"
	"github.com/sumsupee/chatoneverything/internal/chat"
	apperrors "github.com/sumsupee/chatoneverything/internal/errors"
	"github.com/sumsupee/chatoneverything/internal/moderation"
	"github.com/sumsupee/chatoneverything/internal/overlay"
	"github.com/sumsupee/chatoneverything/internal/remote"
	"github.com/sumsupee/chatoneverything/internal/session"
)

// channelBufferSize is the buffer size for the broadcast channel and
// per-client send channels. It absorbs bursts without blocking senders;
// a client that falls further behind than this starts losing frames.
const channelBufferSize = 256

// joinDeadline is how long a connection may stay unauthenticated
// before it is forcibly closed.
const joinDeadline = 10 * time.Second

// closeGraceDelay is the pause between writing an auth-failure result
// frame and closing the socket, so the frame can flush.
const closeGraceDelay = 250 * time.Millisecond

// Per-connection inbound frame budget. Mouse-move streams run at up to
// 60 frames a second; anything past this is a misbehaving client and
// the frames are dropped.
const (
	frameRatePerSecond = 60
	frameRateBurst     = 20
)

// Role is a connection's authentication level. The transition away
// from RoleUnauthenticated is one-way and permanent for the
// connection's lifetime.
type Role int

const (
	RoleUnauthenticated Role = iota
	RoleParticipant
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleParticipant:
		return "participant"
	case RoleAdmin:
		return "admin"
	default:
		return "unauthenticated"
	}
}

// FeedbackCycleHandler is called when an admin turns feedback
// collection on, with the new cycle id. Used to rotate the feedback
// audit log.
type FeedbackCycleHandler func(cycle int)

// Server manages WebSocket connections and fans chat traffic out to
// every validated client. One Server owns one session.
type Server struct {
	addr string

	upgrader websocket.Upgrader

	state      *session.State
	moderation *moderation.Store
	chatLog    *chat.Log
	auditLog   *audit.Logger
	window     overlay.Window
	remote     *remote.Controller

	// trustedProxyHeader names the header the tunnel provider sets
	// with the real client IP. See ClientIP.
	trustedProxyHeader string

	// agentProcessor answers @cee mentions. Nil disables the agent
	// regardless of the session setting.
	agentProcessor agent.Processor

	mu      sync.RWMutex
	clients map[*Client]bool
	admins  map[*Client]bool
	stopped bool

	// postMu serializes id assignment with the broadcast enqueue so
	// frames enter the queue in id order even when the agent reply
	// goroutine races a user message.
	postMu sync.Mutex

	// remoteAdmin is the connection that armed remote control, nil
	// while disarmed. At most one admin drives input at a time.
	remoteAdmin *Client

	feedbackCycleHandler FeedbackCycleHandler

	broadcast  chan any
	httpServer *http.Server
}

// Client is one WebSocket connection. Each client has its own write
// goroutine so a slow client never blocks the broadcaster.
type Client struct {
	// id is a per-connection identifier used only in logs.
	id string

	conn *websocket.Conn

	// send is the buffered outgoing frame channel, drained by
	// writePump.
	send chan any

	// done is closed to signal shutdown. Only done is closed (never
	// send) to avoid racing with in-flight sends.
	done     chan struct{}
	sendOnce sync.Once

	server *Server

	// clientIP is resolved once at upgrade time.
	clientIP string

	// roleMu guards role. Role is written by readPump and read by
	// broadcast paths.
	roleMu sync.Mutex
	role   Role

	// joinTimer fires if the connection is still unauthenticated at
	// the deadline. Stopped on successful validation.
	joinTimer *time.Timer

	// frameLimiter drops inbound frames from clients that flood the
	// socket faster than any legitimate gesture stream.
	frameLimiter *rate.Limiter

	// closeFrame, when set before closeSend, is written as the close
	// frame instead of a bare one. Used for policy closes.
	closeMu    sync.Mutex
	closeFrame []byte
}

// closeSend signals the client to shut down exactly once. Safe to call
// from any goroutine; writePump observes done and closes the socket.
func (c *Client) closeSend() {
	c.sendOnce.Do(func() {
		close(c.done)
	})
}

// setCloseFrame records the close frame writePump should emit.
func (c *Client) setCloseFrame(code int, reason string) {
	c.closeMu.Lock()
	c.closeFrame = websocket.FormatCloseMessage(code, reason)
	c.closeMu.Unlock()
}

func (c *Client) getCloseFrame() []byte {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closeFrame != nil {
		return c.closeFrame
	}
	return []byte{}
}

// Role returns the client's current role.
func (c *Client) Role() Role {
	c.roleMu.Lock()
	defer c.roleMu.Unlock()
	return c.role
}

func (c *Client) setRole(r Role) {
	c.roleMu.Lock()
	c.role = r
	c.roleMu.Unlock()
}

// Deps bundles the collaborators a Server needs.
type Deps struct {
	State              *session.State
	Moderation         *moderation.Store
	ChatLog            *chat.Log
	AuditLog           *audit.Logger
	Window             overlay.Window
	Remote             *remote.Controller
	TrustedProxyHeader string
}

// NewServer creates the broadcast server listening on addr. Call
// StartAsync to begin accepting connections.
func NewServer(addr string, deps Deps) *Server {
	window := deps.Window
	if window == nil {
		window = &overlay.Nop{}
	}
	s := &Server{
		addr:               addr,
		state:              deps.State,
		moderation:         deps.Moderation,
		chatLog:            deps.ChatLog,
		auditLog:           deps.AuditLog,
		window:             window,
		remote:             deps.Remote,
		trustedProxyHeader: deps.TrustedProxyHeader,
		clients:            make(map[*Client]bool),
		admins:             make(map[*Client]bool),
		broadcast:          make(chan any, channelBufferSize),
		upgrader: websocket.Upgrader{
			// Phone browsers connect from LAN or tunnel origins that
			// cannot be enumerated up front.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	// All mode-state fan-out rides on the window's mode event, so
	// host-side toggles reach the admins on the same path as
	// admin-requested ones.
	window.SetModeListener(s.onWindowMode)
	return s
}

// onWindowMode tells the admins the overlay flipped mode.
func (s *Server) onWindowMode(active bool) {
	s.broadcastAdmins(modeStateMessage{Type: MessageTypeModeState, Active: active})
}

// SetAgentProcessor wires the @cee agent. Call before clients connect.
func (s *Server) SetAgentProcessor(p agent.Processor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agentProcessor = p
}

// SetFeedbackCycleHandler sets the callback invoked when an admin
// starts a new feedback cycle. Call before clients connect.
func (s *Server) SetFeedbackCycleHandler(h FeedbackCycleHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedbackCycleHandler = h
}

// StartAsync starts the server in a goroutine and reports startup
// errors on the returned channel. The listener is created first so a
// port conflict surfaces immediately.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		errCh <- apperrors.Wrap(apperrors.CodeServerUpgradeFailed, "listen on "+s.addr, err)
		close(errCh)
		return errCh
	}

	s.httpServer = &http.Server{Handler: mux}

	go s.runBroadcaster()

	go func() {
		log.Printf("server: listening on %s", s.addr)
		errCh <- nil
		close(errCh)

		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("server: %v", err)
		}
	}()

	return errCh
}

// Stop shuts the server down: close frames to all clients, broadcast
// channel closed, listener released.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true

	for client := range s.clients {
		client.closeSend()
	}
	s.clients = make(map[*Client]bool)
	s.admins = make(map[*Client]bool)
	s.remoteAdmin = nil

	close(s.broadcast)
	s.mu.Unlock()

	if s.remote != nil {
		s.remote.Disarm()
	}

	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// ClientCount returns the number of connected clients of any role.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast queues a frame for every connected client regardless of
// role. Non-blocking; drops the frame when the channel is full.
func (s *Server) Broadcast(msg any) {
	// Hold RLock across the send so Stop cannot close the channel
	// underneath us.
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		return
	}

	select {
	case s.broadcast <- msg:
	default:
		log.Printf("server: broadcast channel full, dropping frame")
	}
}

// broadcastAdmins queues a frame for admin connections only.
func (s *Server) broadcastAdmins(msg any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.admins {
		client.trySend(msg)
	}
}

// runBroadcaster fans queued frames out to every client. Delivery
// order to any one socket matches queue order.
func (s *Server) runBroadcaster() {
	for msg := range s.broadcast {
		s.mu.RLock()
		for client := range s.clients {
			client.trySend(msg)
		}
		s.mu.RUnlock()
	}
}

// trySend queues a frame for this client without blocking. Slow
// clients lose frames rather than stalling the fan-out.
func (c *Client) trySend(msg any) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		log.Printf("server: client %s send buffer full, dropping frame", c.id)
	}
}

// handleWebSocket upgrades the connection and starts its pumps. The
// connection starts unauthenticated with the join deadline running.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientIP := ClientIP(r, s.trustedProxyHeader)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: upgrade failed for %s: %v", clientIP, err)
		return
	}

	client := &Client{
		id:           uuid.NewString(),
		conn:         conn,
		send:         make(chan any, channelBufferSize),
		done:         make(chan struct{}),
		server:       s,
		clientIP:     clientIP,
		role:         RoleUnauthenticated,
		frameLimiter: rate.NewLimiter(rate.Limit(frameRatePerSecond), frameRateBurst),
	}

	// Forcibly close connections that never authenticate. The timer
	// is stopped inside promote on success.
	client.joinTimer = time.AfterFunc(joinDeadline, func() {
		if client.Role() == RoleUnauthenticated {
			log.Printf("server: client %s missed the join deadline", client.id)
			client.setCloseFrame(websocket.ClosePolicyViolation, "authentication timeout")
			client.closeSend()
		}
	})

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		client.joinTimer.Stop()
		conn.Close()
		return
	}
	s.clients[client] = true
	s.mu.Unlock()

	log.Printf("server: client %s connected from %s (%d total)", client.id, clientIP, s.ClientCount())

	go client.writePump()
	go client.readPump()
}

// writePump sends queued frames to the socket and pings on an
// interval. Exits on done or write failure, closing the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			c.conn.WriteMessage(websocket.CloseMessage, c.getCloseFrame())
			return

		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := marshalFrame(msg)
			if err != nil {
				log.Printf("server: marshal frame: %v", err)
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("server: write to client %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads inbound frames and dispatches them. Exiting here
// unregisters the client and triggers disconnect cleanup.
func (c *Client) readPump() {
	defer func() {
		c.joinTimer.Stop()

		c.server.mu.Lock()
		delete(c.server.clients, c)
		delete(c.server.admins, c)
		wasRemoteAdmin := c.server.remoteAdmin == c
		if wasRemoteAdmin {
			c.server.remoteAdmin = nil
		}
		c.server.mu.Unlock()

		// An armed remote admin that drops mid-session must not leave
		// the host window in input-passthrough state.
		if wasRemoteAdmin {
			c.server.forceDisarmRemote("admin disconnected")
		}

		c.closeSend()
		log.Printf("server: client %s disconnected (%d remaining)", c.id, c.server.ClientCount())
	}()

	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				log.Printf("server: read from client %s: %v", c.id, err)
			}
			return
		}

		if !c.frameLimiter.Allow() {
			log.Printf("server: client %s exceeded the frame rate, dropping frame", c.id)
			continue
		}

		var probe typeProbe
		if err := json.Unmarshal(data, &probe); err != nil {
			log.Printf("server: malformed frame from client %s: %v", c.id, err)
			c.trySend(newErrorMessage(apperrors.CodeServerInvalidMessage, "malformed frame"))
			continue
		}

		c.handleFrame(probe.Type, data)
	}
}
