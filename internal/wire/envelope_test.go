package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		frame string
		want  Envelope
	}{
		{
			name:  "chatMessage",
			frame: `{"type":"chat_message","message":"hi","use_crawl":true,"use_pg":false,"urls":["https://a.example"]}`,
			want:  ChatMessage{Message: "hi", UseCrawl: true, URLs: []string{"https://a.example"}},
		},
		{
			name:  "chunk",
			frame: `{"type":"chunk","content":"Hel"}`,
			want:  Chunk{Content: "Hel"},
		},
		{
			name:  "complete",
			frame: `{"type":"complete"}`,
			want:  Complete{},
		},
		{
			name:  "error",
			frame: `{"type":"error","message":"model unavailable"}`,
			want:  ErrorEvent{Message: "model unavailable"},
		},
		{
			name:  "status",
			frame: `{"type":"status","stage":"generating"}`,
			want:  Status{Stage: "generating"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeUnknownType(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"type":"presence","user":"x"}`))
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestDecodeMalformedFrame(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`not json at all`))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnknownType)
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	envelopes := []Envelope{
		ChatMessage{Message: "run it", UsePG: true},
		Chunk{Content: "lo"},
		Complete{},
		ErrorEvent{Message: "boom"},
		Status{Stage: "generating"},
	}

	for _, env := range envelopes {
		data, err := Encode(env)
		require.NoError(t, err)

		var probe map[string]any
		require.NoError(t, json.Unmarshal(data, &probe))
		require.Contains(t, probe, "type")

		got, err := Decode(data)
		require.NoError(t, err)
		require.Equal(t, env, got)
	}
}

func TestEncodeCompleteHasOnlyTypeTag(t *testing.T) {
	t.Parallel()

	data, err := Encode(Complete{})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"complete"}`, string(data))
}
