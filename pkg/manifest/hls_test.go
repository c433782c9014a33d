package manifest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ertflix-extract/pkg/logging"
	"ertflix-extract/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const masterPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-STREAM-INF:BANDWIDTH=2500000,RESOLUTION=1280x720,CODECS="avc1.4d401f,mp4a.40.2",FRAME-RATE=25.000
720p/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=800000,AVERAGE-BANDWIDTH=700000,RESOLUTION=640x360,CODECS="avc1.4d401e,mp4a.40.2"
https://cdn2.example/360p/index.m3u8
#EXT-X-I-FRAME-STREAM-INF:BANDWIDTH=90000,URI="iframes.m3u8"
#EXT-X-STREAM-INF:BANDWIDTH=5000000,RESOLUTION=1920x1080
/abs/1080p/index.m3u8
`

const mediaPlaylist = `#EXTM3U
#EXT-X-TARGETDURATION:6
#EXTINF:6.0,
seg0.ts
#EXTINF:6.0,
seg1.ts
#EXT-X-ENDLIST
`

func TestParseM3U8Formats_Master(t *testing.T) {
	formats, err := ParseM3U8Formats([]byte(masterPlaylist), "https://cdn.example/vod/master.m3u8", "mp4", "hls")
	require.NoError(t, err)
	require.Len(t, formats, 3)

	low, mid, high := formats[0], formats[1], formats[2]

	assert.Equal(t, "hls-700", low.FormatID)
	assert.Equal(t, "https://cdn2.example/360p/index.m3u8", low.URL)
	assert.InDelta(t, 700.0, low.TBR, 1e-9)
	assert.Equal(t, 640, low.Width)
	assert.Equal(t, 360, low.Height)

	assert.Equal(t, "hls-2500", mid.FormatID)
	assert.Equal(t, "https://cdn.example/vod/720p/index.m3u8", mid.URL)
	assert.Equal(t, "avc1.4d401f", mid.VCodec)
	assert.Equal(t, "mp4a.40.2", mid.ACodec)
	assert.InDelta(t, 25.0, mid.FPS, 1e-9)

	assert.Equal(t, "hls-5000", high.FormatID)
	assert.Equal(t, "https://cdn.example/abs/1080p/index.m3u8", high.URL)
	assert.Equal(t, 1080, high.Height)

	for _, f := range formats {
		assert.Equal(t, "mp4", f.Ext)
		assert.Equal(t, types.ProtocolM3U8Native, f.Protocol)
		assert.Equal(t, "https://cdn.example/vod/master.m3u8", f.ManifestURL)
	}
}

func TestParseM3U8Formats_Media(t *testing.T) {
	formats, err := ParseM3U8Formats([]byte(mediaPlaylist), "https://cdn.example/live/stream.m3u8", "mp4", "hls")
	require.NoError(t, err)
	require.Len(t, formats, 1)

	assert.Equal(t, types.Format{
		FormatID:    "hls",
		URL:         "https://cdn.example/live/stream.m3u8",
		ManifestURL: "https://cdn.example/live/stream.m3u8",
		Ext:         "mp4",
		Protocol:    types.ProtocolM3U8Native,
	}, formats[0])
}

func TestParseM3U8Formats_MissingBandwidth(t *testing.T) {
	playlist := "#EXTM3U\n#EXT-X-STREAM-INF:RESOLUTION=640x360\na.m3u8\n#EXT-X-STREAM-INF:RESOLUTION=1280x720\nb.m3u8\n"

	formats, err := ParseM3U8Formats([]byte(playlist), "https://cdn.example/master.m3u8", "mp4", "hls")
	require.NoError(t, err)
	require.Len(t, formats, 2)
	assert.Equal(t, "hls-0", formats[0].FormatID)
	assert.Equal(t, "hls-1", formats[1].FormatID)
	assert.Equal(t, 720, formats[1].Height)
}

func TestParseM3U8Formats_NotPlaylist(t *testing.T) {
	_, err := ParseM3U8Formats([]byte("<html>blocked</html>"), "https://cdn.example/master.m3u8", "mp4", "hls")
	assert.ErrorIs(t, err, ErrNotM3U8)
}

func TestParseAttributes(t *testing.T) {
	attrs := parseAttributes(`BANDWIDTH=1280000,CODECS="avc1.42e00a,mp4a.40.2",RESOLUTION=640x360,NAME="a,b"`)

	assert.Equal(t, map[string]string{
		"BANDWIDTH":  "1280000",
		"CODECS":     "avc1.42e00a,mp4a.40.2",
		"RESOLUTION": "640x360",
		"NAME":       "a,b",
	}, attrs)
}

func TestSplitCodecs(t *testing.T) {
	tests := []struct {
		in     string
		vcodec string
		acodec string
	}{
		{"avc1.4d401f,mp4a.40.2", "avc1.4d401f", "mp4a.40.2"},
		{"mp4a.40.2", "", "mp4a.40.2"},
		{"hvc1.1.6.L93.B0", "hvc1.1.6.L93.B0", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, a := splitCodecs(tt.in)
			assert.Equal(t, tt.vcodec, v)
			assert.Equal(t, tt.acodec, a)
		})
	}
}

func TestHLSResolver_ExtractM3U8Formats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/vod/master.m3u8":
			fmt.Fprint(w, masterPlaylist)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	resolver := NewHLSResolver(server.Client(), logging.Discard())
	ctx := context.Background()

	formats, err := resolver.ExtractM3U8Formats(ctx, server.URL+"/vod/master.m3u8", "vid", "mp4", "hls", true)
	require.NoError(t, err)
	require.Len(t, formats, 3)
	assert.Equal(t, server.URL+"/vod/720p/index.m3u8", formats[1].URL)

	_, err = resolver.ExtractM3U8Formats(ctx, server.URL+"/missing.m3u8", "vid", "mp4", "hls", true)
	assert.ErrorContains(t, err, "status 404")

	formats, err = resolver.ExtractM3U8Formats(ctx, server.URL+"/missing.m3u8", "vid", "mp4", "hls", false)
	assert.NoError(t, err)
	assert.Nil(t, formats)
}
