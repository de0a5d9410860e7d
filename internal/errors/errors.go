// Package errors provides standardized error codes for the chat host.
//
// Error codes follow the format {domain}.{error} where:
//   - domain: The subsystem that generated the error (session, server, moderation, ...)
//   - error: The specific error type within that domain
//
// These codes are stable and can be used by browser clients for programmatic
// error handling. Human-readable messages are provided alongside codes.
package errors

import (
	"errors"
	"fmt"
)

// Error codes by domain.
// These are stable identifiers that clients can rely on for error handling.
const (
	// Session domain - session identity and authentication
	CodeSessionInvalidCode  = "session.invalid_code"  // Session code does not match
	CodeSessionBadPassword  = "session.bad_password"  // Admin password does not match
	CodeSessionNotValidated = "session.not_validated" // Operation requires a validated connection
	CodeSessionJoinTimeout  = "session.join_timeout"  // Connection never validated before the deadline

	// Server domain - WebSocket and network errors
	CodeServerUpgradeFailed  = "server.upgrade_failed"  // WebSocket upgrade failed
	CodeServerInvalidMessage = "server.invalid_message" // Malformed or invalid message
	CodeServerUnknownType    = "server.unknown_type"    // Unrecognized message type
	CodeServerNotAdmin       = "server.not_admin"       // Operation requires the admin role
	CodeServerSendFailed     = "server.send_failed"     // Failed to send message

	// Moderation domain - chat policy enforcement
	CodeModerationBlocked      = "moderation.blocked"       // Sender IP is blocked
	CodeModerationSlowMode     = "moderation.slow_mode"     // Message rejected by slow mode
	CodeModerationAlreadySet   = "moderation.already_set"   // Block/unblock target already in that state
	CodeModerationUnknownMsgID = "moderation.unknown_msgid" // Delete targets a message id that does not exist

	// Feedback domain - feedback collection endpoint
	CodeFeedbackDisabled         = "feedback.disabled"          // Feedback collection is off
	CodeFeedbackDuplicate        = "feedback.already_submitted" // One submission per IP per cycle
	CodeFeedbackInvalidBody      = "feedback.invalid_body"      // Body is not valid feedback JSON
	CodeFeedbackBodyTooLarge     = "feedback.body_too_large"    // Body exceeds the size cap
	CodeFeedbackNoClientIP       = "feedback.no_client_ip"      // Client IP could not be resolved
	CodeFeedbackMethodNotAllowed = "feedback.method_not_allowed"

	// Remote domain - remote input control
	CodeRemoteUnavailable = "remote.unavailable"  // No input backend on this host
	CodeRemoteToolMissing = "remote.tool_missing" // Input tool binary not found
	CodeRemoteDaemonDown  = "remote.daemon_down"  // Input daemon unreachable
	CodeRemoteExecFailed  = "remote.exec_failed"  // Tool invocation failed
	CodeRemoteUnknownKey  = "remote.unknown_key"  // Key name has no backend translation
	CodeRemoteSetupFailed = "remote.setup_failed" // Privilege rule install failed
	CodeRemoteNotArmed    = "remote.not_armed"    // Gesture received while remote mode is off
	CodeRemoteBadGesture  = "remote.bad_gesture"  // Gesture payload failed validation

	// Agent domain - chat agent collaborator
	CodeAgentDisabled = "agent.disabled" // Agent feature is off or unconfigured
	CodeAgentFailed   = "agent.failed"   // Agent processing failed

	// Tunnel domain - outbound tunnel provisioning
	CodeTunnelStartFailed = "tunnel.start_failed" // cloudflared could not be started
	CodeTunnelNoURL       = "tunnel.no_url"       // No tunnel URL discovered before the deadline

	// Storage domain - feedback archive persistence
	CodeStorageOpenFailed  = "storage.open_failed"  // Database open failed
	CodeStorageQueryFailed = "storage.query_failed" // Database query failed
	CodeStorageSaveFailed  = "storage.save_failed"  // Failed to save data

	// Audit domain - event log sink
	CodeAuditNoWritableDir = "audit.no_writable_dir" // No candidate log directory is writable
	CodeAuditWriteFailed   = "audit.write_failed"    // Failed to append an event

	// General domain - catch-all errors
	CodeUnknown  = "error.unknown"  // Unknown error
	CodeInternal = "error.internal" // Internal server error
)

// CodedError wraps an error with a stable error code.
// This allows errors to carry both a code for programmatic handling
// and a message for human consumption.
type CodedError struct {
	Code    string // Stable error code (e.g., "moderation.blocked")
	Message string // Human-readable error message
	Cause   error  // Underlying error (may be nil)
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CodedError) Unwrap() error {
	return e.Cause
}

// New creates a new CodedError with the given code and message.
func New(code, message string) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new CodedError wrapping an existing error.
func Wrap(code, message string, cause error) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// GetCode extracts the error code from an error.
// If the error is a CodedError, returns its code.
// Falls back to CodeUnknown for unrecognized errors.
func GetCode(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}

	return CodeUnknown
}

// GetMessage extracts a human-readable message from an error.
// If the error is a CodedError, returns its message.
// Otherwise, returns the error's Error() string.
func GetMessage(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Message
	}

	return err.Error()
}

// ToCodeAndMessage extracts both code and message from an error.
// This is the primary function for converting errors to client replies.
func ToCodeAndMessage(err error) (code, message string) {
	if err == nil {
		return "", ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code, coded.Message
	}

	return CodeUnknown, err.Error()
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code string) bool {
	return GetCode(err) == code
}
