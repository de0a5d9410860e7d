package config

// DefaultWSPort is the default WebSocket server port.
// The HTTP surface always listens on the next port up.
const DefaultWSPort = 8080

// DefaultTrustedProxyHeader is the header checked first for the real
// client IP when requests arrive through the tunnel provider's edge.
const DefaultTrustedProxyHeader = "CF-Connecting-IP"

// DefaultSlowModeSeconds seeds the slow-mode cooldown setting.
const DefaultSlowModeSeconds = 5

// DefaultLogLevel is the default logging verbosity.
const DefaultLogLevel = "info"
