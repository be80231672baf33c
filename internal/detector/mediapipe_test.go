package detector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestHelperConn_Exchange(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantHands int
		wantErr   string
	}{
		{
			name:      "one hand",
			reply:     `{"hands":[{"points":[{"x":0.5,"y":0.8,"z":0}],"handedness":"Right","score":0.9}]}` + "\n",
			wantHands: 1,
		},
		{name: "no hands", reply: `{"hands":[]}` + "\n"},
		{name: "helper error", reply: `{"error":"model not loaded"}` + "\n", wantErr: "model not loaded"},
		{name: "garbage", reply: "not json\n", wantErr: "parse reply"},
		{name: "closed", reply: "", wantErr: "read reply"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sent bytes.Buffer
			conn := &helperConn{w: &sent, r: bufio.NewReader(strings.NewReader(tt.reply))}

			jpeg := []byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9}
			hands, err := conn.exchange(jpeg)

			if got := sent.Bytes(); len(got) != 4+len(jpeg) ||
				binary.BigEndian.Uint32(got) != uint32(len(jpeg)) || !bytes.Equal(got[4:], jpeg) {
				t.Errorf("sent %x, want length-prefixed %x", got, jpeg)
			}

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("exchange() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("exchange() error = %v", err)
			}
			if len(hands) != tt.wantHands {
				t.Fatalf("got %d hands, want %d", len(hands), tt.wantHands)
			}
			if tt.wantHands > 0 {
				h := hands[0]
				if h.Handedness != "Right" || h.Score != 0.9 || h.Points[Wrist].Y != 0.8 {
					t.Errorf("hand = %+v", h)
				}
			}
		})
	}
}
