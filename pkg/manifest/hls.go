// Package manifest resolves streaming manifests into playable formats.
package manifest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ertflix-extract/pkg/interfaces"
	"ertflix-extract/pkg/logging"
	"ertflix-extract/pkg/types"
	"ertflix-extract/pkg/urlutil"
)

// ErrNotM3U8 is returned when a body is not an HLS playlist.
var ErrNotM3U8 = errors.New("not an m3u8 playlist")

var attrRe = regexp.MustCompile(`([A-Z0-9-]+)=("[^"]*"|[^",]*)`)

// HLSResolver fetches HLS playlists and turns their variants into formats.
type HLSResolver struct {
	client interfaces.HTTPClient
	log    *logging.Logger
}

// NewHLSResolver creates a new HLS resolver.
func NewHLSResolver(client interfaces.HTTPClient, log *logging.Logger) *HLSResolver {
	return &HLSResolver{
		client: client,
		log:    log.WithComponent("hls-resolver"),
	}
}

// ExtractM3U8Formats fetches manifestURL and parses it. With fatal=false any
// failure is logged and (nil, nil) is returned.
func (r *HLSResolver) ExtractM3U8Formats(ctx context.Context, manifestURL, videoID, ext, m3u8ID string, fatal bool) ([]types.Format, error) {
	r.log.Debug("downloading m3u8 information", "url", manifestURL, "video_id", videoID)

	formats, err := r.extract(ctx, manifestURL, ext, m3u8ID)
	if err != nil {
		if fatal {
			return nil, fmt.Errorf("%s: failed to download m3u8 information: %w", videoID, err)
		}
		r.log.Warn("failed to download m3u8 information", "url", manifestURL, "video_id", videoID, "error", err)
		return nil, nil
	}

	r.log.Debug("parsed m3u8 formats", "video_id", videoID, "count", len(formats))
	return formats, nil
}

func (r *HLSResolver) extract(ctx context.Context, manifestURL, ext, m3u8ID string) ([]types.Format, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("manifest returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	return ParseM3U8Formats(body, manifestURL, ext, m3u8ID)
}

// ParseM3U8Formats parses an HLS playlist. A master playlist yields one format
// per #EXT-X-STREAM-INF variant, ordered from lowest to highest bitrate; a
// media playlist yields a single format pointing at manifestURL.
func ParseM3U8Formats(manifest []byte, manifestURL, ext, m3u8ID string) ([]types.Format, error) {
	manifest = bytes.TrimPrefix(manifest, []byte("\xef\xbb\xbf"))
	if !bytes.HasPrefix(bytes.TrimSpace(manifest), []byte("#EXTM3U")) {
		return nil, ErrNotM3U8
	}

	var (
		formats []types.Format
		pending map[string]string
	)

	scanner := bufio.NewScanner(bytes.NewReader(manifest))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			if rest, ok := strings.CutPrefix(line, "#EXT-X-STREAM-INF:"); ok {
				pending = parseAttributes(rest)
			}
			continue
		}

		// URI line; only meaningful right after a STREAM-INF tag
		if pending == nil {
			continue
		}
		formats = append(formats, variantFormat(pending, urlutil.ResolveURL(line, manifestURL), manifestURL, ext))
		pending = nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(formats) == 0 {
		return []types.Format{{
			FormatID:    m3u8ID,
			URL:         manifestURL,
			ManifestURL: manifestURL,
			Ext:         ext,
			Protocol:    types.ProtocolM3U8Native,
		}}, nil
	}

	sort.SliceStable(formats, func(i, j int) bool {
		if formats[i].TBR != formats[j].TBR {
			return formats[i].TBR < formats[j].TBR
		}
		return formats[i].Height < formats[j].Height
	})

	for i := range formats {
		if formats[i].TBR > 0 {
			formats[i].FormatID = fmt.Sprintf("%s-%d", m3u8ID, int(formats[i].TBR))
		} else {
			formats[i].FormatID = fmt.Sprintf("%s-%d", m3u8ID, i)
		}
	}
	return formats, nil
}

func variantFormat(attrs map[string]string, variantURL, manifestURL, ext string) types.Format {
	f := types.Format{
		URL:         variantURL,
		ManifestURL: manifestURL,
		Ext:         ext,
		Protocol:    types.ProtocolM3U8Native,
	}

	bandwidth := attrs["AVERAGE-BANDWIDTH"]
	if bandwidth == "" {
		bandwidth = attrs["BANDWIDTH"]
	}
	if bw, err := strconv.ParseFloat(bandwidth, 64); err == nil {
		f.TBR = bw / 1000
	}

	if res := attrs["RESOLUTION"]; res != "" {
		if w, h, ok := strings.Cut(res, "x"); ok {
			f.Width, _ = strconv.Atoi(w)
			f.Height, _ = strconv.Atoi(h)
		}
	}

	if fps, err := strconv.ParseFloat(attrs["FRAME-RATE"], 64); err == nil {
		f.FPS = fps
	}

	f.VCodec, f.ACodec = splitCodecs(attrs["CODECS"])
	return f
}

// parseAttributes parses an HLS attribute list, unquoting quoted values.
func parseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrRe.FindAllStringSubmatch(s, -1) {
		attrs[m[1]] = strings.Trim(m[2], `"`)
	}
	return attrs
}

func splitCodecs(codecs string) (vcodec, acodec string) {
	for _, c := range strings.Split(codecs, ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		switch prefix := strings.SplitN(c, ".", 2)[0]; prefix {
		case "avc1", "avc3", "hvc1", "hev1", "vp09", "vp8", "vp9", "av01":
			if vcodec == "" {
				vcodec = c
			}
		case "mp4a", "ac-3", "ec-3", "opus", "flac":
			if acodec == "" {
				acodec = c
			}
		}
	}
	return vcodec, acodec
}

var _ interfaces.FormatResolver = (*HLSResolver)(nil)
