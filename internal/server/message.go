package server

import (
	"encoding/json"

	"github.com/sumsupee/chatoneverything/internal/session"
)

// MessageType identifies a protocol frame. All frames are flat JSON
// text with a "type" discriminator.
type MessageType string

// Client -> server frame types.
const (
	// Pre-validation frames. These are the only two types accepted
	// while a connection is unauthenticated.
	MessageTypeJoin      MessageType = "join"
	MessageTypeAdminAuth MessageType = "admin-auth"

	// MessageTypeChat carries one chat message from any validated role.
	MessageTypeChat MessageType = "message"

	// Admin-only frame types.
	MessageTypeAdminSettings   MessageType = "admin-settings"
	MessageTypeAdminDeleteMsg  MessageType = "admin-delete-msg"
	MessageTypeAdminBlockIP    MessageType = "admin-block-ip"
	MessageTypeAdminUnblockIP  MessageType = "admin-unblock-ip"
	MessageTypeAdminToggleMode MessageType = "admin-toggle-mode"

	// Remote-control lifecycle and gesture frames (admin only).
	MessageTypeRemoteStart       MessageType = "remote-control-start"
	MessageTypeRemoteEnd         MessageType = "remote-control-end"
	MessageTypeRemoteMouseMove   MessageType = "remote-mouse-move"
	MessageTypeRemoteMouseClick  MessageType = "remote-mouse-click"
	MessageTypeRemoteMouseDouble MessageType = "remote-mouse-double-click"
	MessageTypeRemoteMouseDown   MessageType = "remote-mouse-down"
	MessageTypeRemoteMouseUp     MessageType = "remote-mouse-up"
	MessageTypeRemoteScroll      MessageType = "remote-scroll"
	MessageTypeRemoteTypeText    MessageType = "remote-type-text"
	MessageTypeRemoteKeyPress    MessageType = "remote-key-press"
	MessageTypeRemoteVolume      MessageType = "remote-volume"
	MessageTypeRemoteMedia       MessageType = "remote-media"
	MessageTypeRemotePlayer      MessageType = "remote-player-control"
)

// Server -> client frame types.
const (
	MessageTypeJoinResult      MessageType = "join-result"
	MessageTypeAdminAuthResult MessageType = "admin-auth-result"
	MessageTypeBlockResult     MessageType = "block-result"
	MessageTypeMessageDeleted  MessageType = "message-deleted"
	MessageTypeSettingsSync    MessageType = "settings-sync"
	MessageTypeModeState       MessageType = "mode-state"
	MessageTypeRemoteState     MessageType = "remote-control-state"
	MessageTypeBlockedIPs      MessageType = "blocked-ips-update"
	MessageTypeSlowMode        MessageType = "slow-mode"
	MessageTypeBlocked         MessageType = "blocked"
	MessageTypeError           MessageType = "error"
)

// typeProbe extracts just the discriminator so the frame can be
// re-decoded into its concrete shape.
type typeProbe struct {
	Type MessageType `json:"type"`
}

// Inbound frame shapes. Each handler re-unmarshals the raw frame into
// the shape it needs; unknown keys are ignored by encoding/json.

type joinFrame struct {
	SessionCode string `json:"sessionCode"`
}

type adminAuthFrame struct {
	Password string `json:"password"`
}

type chatFrame struct {
	User string `json:"user"`
	Text string `json:"text"`
}

type deleteMsgFrame struct {
	MsgID int64 `json:"msgId"`
}

type blockIPFrame struct {
	IP     string `json:"ip"`
	Reason string `json:"reason"`
}

type mouseMoveFrame struct {
	DeltaX int `json:"deltaX"`
	DeltaY int `json:"deltaY"`
}

type mouseButtonFrame struct {
	Button string `json:"button"`
}

type scrollFrame struct {
	DeltaX int `json:"deltaX"`
	DeltaY int `json:"deltaY"`
}

type typeTextFrame struct {
	Text string `json:"text"`
}

type keyPressFrame struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"`
}

type actionFrame struct {
	Action string `json:"action"`
	Value  int    `json:"value"`
}

// Outbound frames. Constructors return values ready for the client
// send channel; writePump marshals them.

type joinResultMessage struct {
	Type     MessageType       `json:"type"`
	Success  bool              `json:"success"`
	Code     string            `json:"code,omitempty"`
	Settings *session.Settings `json:"settings,omitempty"`
	WSURL    string            `json:"wsUrl,omitempty"`
	HTTPURL  string            `json:"httpUrl,omitempty"`
}

type adminAuthResultMessage struct {
	Type       MessageType       `json:"type"`
	Success    bool              `json:"success"`
	Settings   *session.Settings `json:"settings,omitempty"`
	BlockedIPs []string          `json:"blockedIps,omitempty"`
	WSURL      string            `json:"wsUrl,omitempty"`
	HTTPURL    string            `json:"httpUrl,omitempty"`
}

type chatMessage struct {
	Type      MessageType `json:"type"`
	ID        int64       `json:"id"`
	User      string      `json:"user"`
	Text      string      `json:"text"`
	Timestamp int64       `json:"timestamp"`
}

type messageDeletedMessage struct {
	Type  MessageType `json:"type"`
	MsgID int64       `json:"msgId"`
}

type settingsSyncMessage struct {
	Type     MessageType      `json:"type"`
	Settings session.Settings `json:"settings"`
	WSURL    string           `json:"wsUrl"`
	HTTPURL  string           `json:"httpUrl"`
}

type modeStateMessage struct {
	Type   MessageType `json:"type"`
	Active bool        `json:"active"`
}

type remoteStateMessage struct {
	Type    MessageType `json:"type"`
	Active  bool        `json:"active"`
	Enabled bool        `json:"enabled"`
}

type blockResultMessage struct {
	Type    MessageType `json:"type"`
	Action  MessageType `json:"action"`
	IP      string      `json:"ip"`
	Success bool        `json:"success"`
}

type blockedIPsMessage struct {
	Type       MessageType `json:"type"`
	BlockedIPs []string    `json:"blockedIps"`
}

type slowModeMessage struct {
	Type             MessageType `json:"type"`
	RemainingSeconds int         `json:"remainingSeconds"`
}

type blockedMessage struct {
	Type MessageType `json:"type"`
}

type errorMessage struct {
	Type    MessageType `json:"type"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
}

func newErrorMessage(code, message string) errorMessage {
	return errorMessage{Type: MessageTypeError, Code: code, Message: message}
}

// isRemoteGesture reports whether the frame type is one of the gesture
// frames forwarded to the input controller while remote mode is armed.
func isRemoteGesture(t MessageType) bool {
	switch t {
	case MessageTypeRemoteMouseMove, MessageTypeRemoteMouseClick,
		MessageTypeRemoteMouseDouble, MessageTypeRemoteMouseDown,
		MessageTypeRemoteMouseUp, MessageTypeRemoteScroll,
		MessageTypeRemoteTypeText, MessageTypeRemoteKeyPress,
		MessageTypeRemoteVolume, MessageTypeRemoteMedia,
		MessageTypeRemotePlayer:
		return true
	}
	return false
}

// marshalFrame serializes any outbound frame value. Split out so tests
// can assert wire shapes without a live connection.
func marshalFrame(v any) ([]byte, error) {
	return json.Marshal(v)
}
