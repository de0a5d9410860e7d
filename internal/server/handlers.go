package server

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sumsupee/chatoneverything/internal/agent"
	"github.com/sumsupee/chatoneverything/internal/chat"
	apperrors "github.com/sumsupee/chatoneverything/internal/errors"
	"github.com/sumsupee/chatoneverything/internal/session"
)

// agentTimeout bounds one @cee request end to end.
const agentTimeout = 60 * time.Second

// handleFrame dispatches one inbound frame by type and the client's
// role. Unauthenticated connections may only join or authenticate;
// everything else draws an error reply but keeps the socket open.
func (c *Client) handleFrame(t MessageType, data []byte) {
	switch t {
	case MessageTypeJoin:
		c.handleJoin(data)
		return
	case MessageTypeAdminAuth:
		c.handleAdminAuth(data)
		return
	}

	role := c.Role()
	if role == RoleUnauthenticated {
		c.trySend(newErrorMessage(apperrors.CodeSessionNotValidated, "join the session first"))
		return
	}

	switch t {
	case MessageTypeChat:
		c.handleChat(data, role)
		return
	}

	// Everything below requires the admin role. Non-admin senders are
	// silently ignored.
	if role != RoleAdmin {
		log.Printf("server: client %s (%s) sent admin frame %s, ignoring", c.id, role, t)
		return
	}

	switch t {
	case MessageTypeAdminSettings:
		c.handleAdminSettings(data)
	case MessageTypeAdminDeleteMsg:
		c.handleAdminDeleteMsg(data)
	case MessageTypeAdminBlockIP:
		c.handleAdminBlockIP(data, true)
	case MessageTypeAdminUnblockIP:
		c.handleAdminBlockIP(data, false)
	case MessageTypeAdminToggleMode:
		c.handleAdminToggleMode()
	case MessageTypeRemoteStart:
		c.handleRemoteStart()
	case MessageTypeRemoteEnd:
		c.handleRemoteEnd()
	default:
		if isRemoteGesture(t) {
			c.handleRemoteGesture(t, data)
			return
		}
		log.Printf("server: client %s sent unknown frame type %q", c.id, t)
		c.trySend(newErrorMessage(apperrors.CodeServerUnknownType, "unknown frame type "+string(t)))
	}
}

// promote moves the client to its validated role and cancels the join
// deadline. One-way for the connection's lifetime.
func (c *Client) promote(role Role) {
	c.joinTimer.Stop()
	c.setRole(role)
	if role == RoleAdmin {
		c.server.mu.Lock()
		c.server.admins[c] = true
		c.server.mu.Unlock()
	}
}

// rejectAuth sends the failure frame, then closes the socket with a
// policy close code after a short grace so the frame can flush.
func (c *Client) rejectAuth(msg any, reason string) {
	c.trySend(msg)
	time.AfterFunc(closeGraceDelay, func() {
		c.setCloseFrame(websocket.ClosePolicyViolation, reason)
		c.closeSend()
	})
}

// handleJoin validates the session code. Mismatch closes the socket;
// success promotes to participant and returns the settings snapshot
// plus resolved URLs.
func (c *Client) handleJoin(data []byte) {
	if c.Role() != RoleUnauthenticated {
		// Already validated; a repeat join is a no-op success.
		c.trySend(joinResultMessage{Type: MessageTypeJoinResult, Success: true, Code: c.server.state.Identity().Code()})
		return
	}

	var frame joinFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Printf("server: malformed join from client %s: %v", c.id, err)
		c.rejectAuth(joinResultMessage{Type: MessageTypeJoinResult, Success: false}, "malformed join")
		return
	}

	if !c.server.state.Identity().CheckCode(frame.SessionCode) {
		log.Printf("server: client %s join rejected, wrong session code", c.id)
		c.server.audit("join-rejected", map[string]any{"ip": c.clientIP})
		c.rejectAuth(joinResultMessage{Type: MessageTypeJoinResult, Success: false}, "invalid session code")
		return
	}

	c.promote(RoleParticipant)
	settings := c.server.state.Settings()
	urls := c.server.state.URLs()
	c.trySend(joinResultMessage{
		Type:     MessageTypeJoinResult,
		Success:  true,
		Code:     c.server.state.Identity().Code(),
		Settings: &settings,
		WSURL:    urls.WS,
		HTTPURL:  urls.HTTP,
	})
	c.server.audit("join", map[string]any{"ip": c.clientIP})
	log.Printf("server: client %s joined as participant", c.id)
}

// handleAdminAuth validates the admin password. Success registers the
// connection in the admin set and pushes current mode and remote
// state.
func (c *Client) handleAdminAuth(data []byte) {
	if c.Role() == RoleAdmin {
		settings := c.server.state.Settings()
		c.trySend(adminAuthResultMessage{Type: MessageTypeAdminAuthResult, Success: true, Settings: &settings})
		return
	}
	if c.Role() != RoleUnauthenticated {
		c.trySend(newErrorMessage(apperrors.CodeServerNotAdmin, "already joined as participant"))
		return
	}

	var frame adminAuthFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Printf("server: malformed admin-auth from client %s: %v", c.id, err)
		c.rejectAuth(adminAuthResultMessage{Type: MessageTypeAdminAuthResult, Success: false}, "malformed admin-auth")
		return
	}

	if !c.server.state.Identity().CheckAdminPassword(frame.Password) {
		log.Printf("server: client %s admin-auth rejected", c.id)
		c.server.audit("admin-auth-rejected", map[string]any{"ip": c.clientIP})
		c.rejectAuth(adminAuthResultMessage{Type: MessageTypeAdminAuthResult, Success: false}, "invalid admin password")
		return
	}

	c.promote(RoleAdmin)
	settings := c.server.state.Settings()
	urls := c.server.state.URLs()
	c.trySend(adminAuthResultMessage{
		Type:       MessageTypeAdminAuthResult,
		Success:    true,
		Settings:   &settings,
		BlockedIPs: c.server.moderation.BlockedIPs(),
		WSURL:      urls.WS,
		HTTPURL:    urls.HTTP,
	})

	// New admins immediately learn the window mode and whether remote
	// control is armed.
	c.trySend(modeStateMessage{Type: MessageTypeModeState, Active: c.server.windowActive()})
	c.trySend(remoteStateMessage{
		Type:    MessageTypeRemoteState,
		Active:  c.server.remoteArmed(),
		Enabled: settings.RemoteEnabled,
	})
	c.server.audit("admin-auth", map[string]any{"ip": c.clientIP})
	log.Printf("server: client %s authenticated as admin", c.id)
}

// handleChat runs the ingestion pipeline for one chat message:
// moderation checks, normalization, id assignment, fan-out, agent
// dispatch.
func (c *Client) handleChat(data []byte, role Role) {
	var frame chatFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Printf("server: malformed message from client %s: %v", c.id, err)
		c.trySend(newErrorMessage(apperrors.CodeServerInvalidMessage, "malformed message"))
		return
	}

	s := c.server

	if s.moderation.IsBlocked(c.clientIP) {
		s.audit("message-rejected-blocked", map[string]any{"ip": c.clientIP, "user": frame.User})
		c.trySend(blockedMessage{Type: MessageTypeBlocked})
		return
	}

	settings := s.state.Settings()
	if settings.SlowModeEnabled && role != RoleAdmin {
		cooldown := time.Duration(settings.SlowModeSeconds) * time.Second
		if remaining, ok := s.moderation.CheckSlowMode(c.clientIP, cooldown); !ok {
			secs := int(remaining.Seconds())
			if secs < 1 {
				secs = 1
			}
			c.trySend(slowModeMessage{Type: MessageTypeSlowMode, RemainingSeconds: secs})
			return
		}
	}

	msg := s.postMessage(frame.User, frame.Text, c.clientIP)
	if msg == nil {
		return
	}

	// Async agent dispatch. The ingestion path never waits on the
	// agent; its reply re-enters postMessage as a synthetic message.
	if settings.AgentEnabled {
		if question, ok := agent.ParseMention(msg.Text); ok {
			s.dispatchAgent(msg.User, question)
		}
	}
}

// postMessage is the single accept path shared by user, admin, and
// synthetic agent messages: normalize, assign id, index, audit,
// broadcast, forward to the overlay. Returns nil when the text
// normalizes to empty. ip is empty for system-authored messages.
func (s *Server) postMessage(user, text, ip string) *messagePosted {
	text = chat.Normalize(text)
	if text == "" {
		return nil
	}

	// Held across append and enqueue so broadcast order matches id
	// order when concurrent accept paths race.
	s.postMu.Lock()
	entry := s.chatLog.Append(user, text, ip)
	s.Broadcast(chatMessage{
		Type:      MessageTypeChat,
		ID:        entry.ID,
		User:      entry.User,
		Text:      entry.Text,
		Timestamp: entry.Timestamp.UnixMilli(),
	})
	s.postMu.Unlock()

	if ip != "" {
		s.moderation.RecordMessage(ip)
	}
	s.audit("message", entry)
	s.window.ShowMessage(entry.ID, entry.User, entry.Text)

	return &messagePosted{ID: entry.ID, User: entry.User, Text: entry.Text}
}

// messagePosted is the slice of an accepted message the ingestion path
// needs after posting.
type messagePosted struct {
	ID   int64
	User string
	Text string
}

// dispatchAgent asks the agent asynchronously. The reply, or a short
// failure line, is injected through the same accept path as a message
// authored by the agent with no origin IP.
func (s *Server) dispatchAgent(user, question string) {
	s.mu.RLock()
	processor := s.agentProcessor
	s.mu.RUnlock()
	if processor == nil {
		return
	}

	history := s.chatLog.Recent()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), agentTimeout)
		defer cancel()

		reply, err := processor.ProcessRequest(ctx, user, question, history)
		if err != nil {
			log.Printf("server: agent request failed: %v", err)
			reply = "Sorry, I could not answer that."
		}
		s.postMessage(agent.Name, reply, "")
	}()
}

// handleAdminSettings applies a partial settings update and broadcasts
// the new snapshot to everyone.
func (c *Client) handleAdminSettings(data []byte) {
	var patch session.Patch
	if err := json.Unmarshal(data, &patch); err != nil {
		log.Printf("server: malformed admin-settings from client %s: %v", c.id, err)
		c.trySend(newErrorMessage(apperrors.CodeServerInvalidMessage, "malformed admin-settings"))
		return
	}

	s := c.server
	settings, result := s.state.Apply(patch)

	if result.FeedbackCycleStarted {
		cycle := s.moderation.NextFeedbackCycle()
		log.Printf("server: feedback cycle %d started", cycle)
		s.mu.RLock()
		handler := s.feedbackCycleHandler
		s.mu.RUnlock()
		if handler != nil {
			handler(cycle)
		}
	}

	if result.RemoteDisabled {
		s.forceDisarmRemote("remote control disabled in settings")
	}

	s.audit("settings-changed", settings)
	s.broadcastSettingsSync()
}

// broadcastSettingsSync pushes the full settings snapshot with freshly
// resolved URLs to every client.
func (s *Server) broadcastSettingsSync() {
	urls := s.state.URLs()
	s.Broadcast(settingsSyncMessage{
		Type:     MessageTypeSettingsSync,
		Settings: s.state.Settings(),
		WSURL:    urls.WS,
		HTTPURL:  urls.HTTP,
	})
}

// handleAdminDeleteMsg marks a message deleted, broadcasts the
// deletion, and runs the auto-block check against the origin IP.
func (c *Client) handleAdminDeleteMsg(data []byte) {
	var frame deleteMsgFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Printf("server: malformed admin-delete-msg from client %s: %v", c.id, err)
		c.trySend(newErrorMessage(apperrors.CodeServerInvalidMessage, "malformed admin-delete-msg"))
		return
	}

	s := c.server
	original, ok := s.chatLog.MarkDeleted(frame.MsgID)
	if !ok {
		// Deleting a missing id is a no-op.
		log.Printf("server: admin-delete-msg for unknown id %d", frame.MsgID)
		return
	}
	if original.Deleted {
		// Repeat delete: nothing new to broadcast or count.
		return
	}

	s.audit("message-deleted", original)
	s.Broadcast(messageDeletedMessage{Type: MessageTypeMessageDeleted, MsgID: frame.MsgID})

	if original.IP != "" && s.moderation.RecordDeletion(original.IP) {
		log.Printf("server: auto-blocked %s after repeated deletions", original.IP)
		s.audit("auto-block", map[string]any{"ip": original.IP})
		s.broadcastAdmins(blockedIPsMessage{Type: MessageTypeBlockedIPs, BlockedIPs: s.moderation.BlockedIPs()})
	}
}

// handleAdminBlockIP handles both block and unblock. The operations
// are idempotent: a no-op state change replies success:false.
func (c *Client) handleAdminBlockIP(data []byte, block bool) {
	var frame blockIPFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Printf("server: malformed block frame from client %s: %v", c.id, err)
		c.trySend(newErrorMessage(apperrors.CodeServerInvalidMessage, "malformed block frame"))
		return
	}

	s := c.server
	action := MessageTypeAdminBlockIP
	var changed bool
	if block {
		changed = s.moderation.Block(frame.IP)
	} else {
		action = MessageTypeAdminUnblockIP
		changed = s.moderation.Unblock(frame.IP)
	}

	c.trySend(blockResultMessage{Type: MessageTypeBlockResult, Action: action, IP: frame.IP, Success: changed})

	if changed {
		event := "ip-unblocked"
		if block {
			event = "ip-blocked"
		}
		s.audit(event, map[string]any{"ip": frame.IP, "reason": frame.Reason})
		s.broadcastAdmins(blockedIPsMessage{Type: MessageTypeBlockedIPs, BlockedIPs: s.moderation.BlockedIPs()})
	}
}

// handleAdminToggleMode flips the overlay between active and passive.
// The mode-state fan-out happens through the window's mode listener.
func (c *Client) handleAdminToggleMode() {
	c.server.window.ToggleMode()
}

// handleRemoteStart arms remote control for this admin connection.
func (c *Client) handleRemoteStart() {
	s := c.server
	settings := s.state.Settings()

	if !settings.RemoteEnabled {
		c.trySend(newErrorMessage(apperrors.CodeRemoteUnavailable, "remote control is disabled"))
		return
	}
	if s.remote == nil || !s.remote.Available() {
		c.trySend(newErrorMessage(apperrors.CodeRemoteUnavailable, "no input backend on this host"))
		return
	}

	s.mu.Lock()
	if s.remoteAdmin != nil && s.remoteAdmin != c {
		s.mu.Unlock()
		c.trySend(newErrorMessage(apperrors.CodeRemoteUnavailable, "another admin is driving input"))
		return
	}
	s.remoteAdmin = c
	s.mu.Unlock()

	s.remote.Arm()
	s.audit("remote-armed", map[string]any{"ip": c.clientIP})
	s.broadcastAdmins(remoteStateMessage{Type: MessageTypeRemoteState, Active: true, Enabled: settings.RemoteEnabled})
}

// handleRemoteEnd disarms remote control.
func (c *Client) handleRemoteEnd() {
	s := c.server
	s.mu.Lock()
	if s.remoteAdmin != c {
		s.mu.Unlock()
		return
	}
	s.remoteAdmin = nil
	s.mu.Unlock()

	s.forceDisarmRemote("admin ended remote control")
}

// forceDisarmRemote disarms the controller and notifies admins. Called
// on explicit end, on settings change, and on admin disconnect.
func (s *Server) forceDisarmRemote(reason string) {
	if s.remote == nil {
		return
	}
	if !s.remote.Armed() {
		return
	}

	s.mu.Lock()
	s.remoteAdmin = nil
	s.mu.Unlock()

	if wasDragging := s.remote.Disarm(); wasDragging {
		// Restore sane window state if the admin vanished mid-drag.
		s.window.EnterPassive()
	}
	log.Printf("server: remote control disarmed (%s)", reason)
	s.audit("remote-disarmed", map[string]any{"reason": reason})
	s.broadcastAdmins(remoteStateMessage{
		Type:    MessageTypeRemoteState,
		Active:  false,
		Enabled: s.state.Settings().RemoteEnabled,
	})
}

// handleRemoteGesture forwards one gesture frame to the controller.
// Only the arming admin's frames are honored; everything else is
// dropped.
func (c *Client) handleRemoteGesture(t MessageType, data []byte) {
	s := c.server

	s.mu.RLock()
	isDriver := s.remoteAdmin == c
	s.mu.RUnlock()
	if !isDriver || s.remote == nil {
		return
	}
	if !s.state.Settings().RemoteEnabled {
		return
	}

	cmd, err := decodeGesture(t, data)
	if err != nil {
		log.Printf("server: bad gesture %s from client %s: %v", t, c.id, err)
		return
	}
	s.remote.Handle(cmd)
}

// windowActive reports the overlay mode for the mode-state frame.
func (s *Server) windowActive() bool {
	return s.window.Active()
}

// remoteArmed reports whether any admin currently drives remote
// control, for the remote-control-state frame.
func (s *Server) remoteArmed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remoteAdmin != nil
}

// audit writes one event, tolerating a nil logger in tests.
func (s *Server) audit(event string, data any) {
	if s.auditLog == nil {
		return
	}
	if err := s.auditLog.Write(event, data); err != nil {
		log.Printf("server: audit write failed: %v", err)
	}
}
