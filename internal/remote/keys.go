package remote

// Canonical key names used by the gesture handlers. Each backend maps
// these through its own table; a name missing from a backend's table is
// logged and dropped, never substituted with a default key.
const (
	KeyVolumeUp   = "audio_vol_up"
	KeyVolumeDown = "audio_vol_down"
	KeyVolumeMute = "audio_mute"
	KeyMediaPlay  = "audio_play"
	KeyMediaStop  = "audio_stop"
	KeyMediaNext  = "audio_next"
	KeyMediaPrev  = "audio_prev"

	KeyLeft  = "left"
	KeyRight = "right"
	KeyUp    = "up"
	KeyDown  = "down"
	KeySpace = "space"
	KeyEnter = "enter"
	KeyEsc   = "esc"
	KeyTab   = "tab"
	KeyF     = "f"
	KeyM     = "m"

	ModCtrl  = "ctrl"
	ModShift = "shift"
	ModAlt   = "alt"
	ModSuper = "super"
)

// volumeKeys maps volume actions to canonical keys.
var volumeKeys = map[string]string{
	"up":   KeyVolumeUp,
	"down": KeyVolumeDown,
	"mute": KeyVolumeMute,
}

// mediaKeys maps media actions to canonical keys. "play" and "pause"
// both land on the play/pause toggle; that is all desktop media keys
// offer.
var mediaKeys = map[string]string{
	"play":  KeyMediaPlay,
	"pause": KeyMediaPlay,
	"stop":  KeyMediaStop,
	"next":  KeyMediaNext,
	"prev":  KeyMediaPrev,
}
