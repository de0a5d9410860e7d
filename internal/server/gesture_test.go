package server

import (
	"reflect"
	"testing"

	apperrors "github.com/sumsupee/chatoneverything/internal/errors"
	"github.com/sumsupee/chatoneverything/internal/remote"
)

func TestDecodeGesture(t *testing.T) {
	tests := []struct {
		name  string
		typ   MessageType
		frame string
		want  remote.Command
	}{
		{
			name:  "mouse move",
			typ:   MessageTypeRemoteMouseMove,
			frame: `{"type":"remote-mouse-move","deltaX":10,"deltaY":-4}`,
			want:  remote.Command{Kind: remote.KindMove, DX: 10, DY: -4},
		},
		{
			name:  "click defaults to left",
			typ:   MessageTypeRemoteMouseClick,
			frame: `{"type":"remote-mouse-click"}`,
			want:  remote.Command{Kind: remote.KindClick, Button: remote.ButtonLeft},
		},
		{
			name:  "right double click",
			typ:   MessageTypeRemoteMouseDouble,
			frame: `{"type":"remote-mouse-double-click","button":"right"}`,
			want:  remote.Command{Kind: remote.KindDoubleClick, Button: remote.ButtonRight},
		},
		{
			name:  "drag start",
			typ:   MessageTypeRemoteMouseDown,
			frame: `{"type":"remote-mouse-down","button":"left"}`,
			want:  remote.Command{Kind: remote.KindButtonDown, Button: remote.ButtonLeft},
		},
		{
			name:  "scroll",
			typ:   MessageTypeRemoteScroll,
			frame: `{"type":"remote-scroll","deltaX":0,"deltaY":33}`,
			want:  remote.Command{Kind: remote.KindScroll, DY: 33},
		},
		{
			name:  "type text",
			typ:   MessageTypeRemoteTypeText,
			frame: `{"type":"remote-type-text","text":"hi there"}`,
			want:  remote.Command{Kind: remote.KindTypeText, Text: "hi there"},
		},
		{
			name:  "key press with modifiers",
			typ:   MessageTypeRemoteKeyPress,
			frame: `{"type":"remote-key-press","key":"enter","modifiers":["ctrl"]}`,
			want:  remote.Command{Kind: remote.KindKeyPress, Key: "enter", Modifiers: []string{"ctrl"}},
		},
		{
			name:  "volume",
			typ:   MessageTypeRemoteVolume,
			frame: `{"type":"remote-volume","action":"mute"}`,
			want:  remote.Command{Kind: remote.KindVolume, Action: "mute"},
		},
		{
			name:  "seek carries value",
			typ:   MessageTypeRemotePlayer,
			frame: `{"type":"remote-player-control","action":"seek","value":-60}`,
			want:  remote.Command{Kind: remote.KindPlayerControl, Action: "seek", Value: -60},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeGesture(tt.typ, []byte(tt.frame))
			if err != nil {
				t.Fatalf("decodeGesture: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("decodeGesture = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeGestureRejectsNonGesture(t *testing.T) {
	_, err := decodeGesture(MessageTypeChat, []byte(`{"type":"message"}`))
	if apperrors.GetCode(err) != apperrors.CodeRemoteBadGesture {
		t.Fatalf("error code = %q, want %q", apperrors.GetCode(err), apperrors.CodeRemoteBadGesture)
	}
}
