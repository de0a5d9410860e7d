package server

import (
	"encoding/json"

	apperrors "github.com/sumsupee/chatoneverything/internal/errors"
	"github.com/sumsupee/chatoneverything/internal/remote"
)

// decodeGesture maps one remote-* frame onto the controller's command
// union. Field validation happens inside the controller; this only
// reshapes the wire payload.
func decodeGesture(t MessageType, data []byte) (remote.Command, error) {
	switch t {
	case MessageTypeRemoteMouseMove:
		var f mouseMoveFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return remote.Command{}, badGesture(t, err)
		}
		return remote.Command{Kind: remote.KindMove, DX: f.DeltaX, DY: f.DeltaY}, nil

	case MessageTypeRemoteMouseClick, MessageTypeRemoteMouseDouble,
		MessageTypeRemoteMouseDown, MessageTypeRemoteMouseUp:
		var f mouseButtonFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return remote.Command{}, badGesture(t, err)
		}
		button := remote.Button(f.Button)
		if f.Button == "" {
			button = remote.ButtonLeft
		}
		return remote.Command{Kind: buttonKind(t), Button: button}, nil

	case MessageTypeRemoteScroll:
		var f scrollFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return remote.Command{}, badGesture(t, err)
		}
		return remote.Command{Kind: remote.KindScroll, DX: f.DeltaX, DY: f.DeltaY}, nil

	case MessageTypeRemoteTypeText:
		var f typeTextFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return remote.Command{}, badGesture(t, err)
		}
		return remote.Command{Kind: remote.KindTypeText, Text: f.Text}, nil

	case MessageTypeRemoteKeyPress:
		var f keyPressFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return remote.Command{}, badGesture(t, err)
		}
		return remote.Command{Kind: remote.KindKeyPress, Key: f.Key, Modifiers: f.Modifiers}, nil

	case MessageTypeRemoteVolume:
		var f actionFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return remote.Command{}, badGesture(t, err)
		}
		return remote.Command{Kind: remote.KindVolume, Action: f.Action}, nil

	case MessageTypeRemoteMedia:
		var f actionFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return remote.Command{}, badGesture(t, err)
		}
		return remote.Command{Kind: remote.KindMedia, Action: f.Action}, nil

	case MessageTypeRemotePlayer:
		var f actionFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return remote.Command{}, badGesture(t, err)
		}
		return remote.Command{Kind: remote.KindPlayerControl, Action: f.Action, Value: f.Value}, nil
	}

	return remote.Command{}, apperrors.New(apperrors.CodeRemoteBadGesture, "not a gesture frame: "+string(t))
}

func buttonKind(t MessageType) remote.Kind {
	switch t {
	case MessageTypeRemoteMouseClick:
		return remote.KindClick
	case MessageTypeRemoteMouseDouble:
		return remote.KindDoubleClick
	case MessageTypeRemoteMouseDown:
		return remote.KindButtonDown
	default:
		return remote.KindButtonUp
	}
}

func badGesture(t MessageType, err error) error {
	return apperrors.Wrap(apperrors.CodeRemoteBadGesture, "malformed "+string(t)+" frame", err)
}
