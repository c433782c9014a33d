package extractors

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"ertflix-extract/pkg/interfaces"
	"ertflix-extract/pkg/logging"
	"ertflix-extract/pkg/types"
	"ertflix-extract/pkg/urlutil"

	"github.com/pkg/errors"
)

var (
	ertgrURLRe = regexp.MustCompile(`^https?://(?:www\.)?ertflix\.gr/(?P<path>[a-z0-9/-]+)/(?P<id>[a-z0-9-]+)`)

	ertgrTitleRe = mustCompileAll("",
		`<div[^>]+class="video-title"[^>]*>([^<]+)<`,
		`<title>(.+?)</title>`,
	)
	ertgrUploaderRe = mustCompileAll("",
		`<span[^>]+class="copy-right"[^>]*>[^-]+- ([^<]+)<`,
		`<span[^>]+class="copy-right"[^>]*>([^<]+)<`,
	)
	ertgrIframeRe = mustCompileAll("",
		`<div[^>]+id="player-embed"[^>]*>[^<]*<iframe[^>]+src="([^"]+)"`,
	)
	ertgrPosterRe = mustCompileAll("",
		`poster\s*:\s*"([^"]+)"`,
		`poster\s*:\s*'([^']+)'`,
	)
	ertgrManifestRe = mustCompileAll("(?i)",
		`HLSLink\s*=\s*'([^']+\.m3u8)'`,
		`HLSLink\s*=\s*"([^"]+\.m3u8)"`,
	)
	ertgrLiveRe = mustCompileAll("(?i)",
		`isLive'\s*:\s*(true|false)\s*,`,
	)
	ertgrEpisodeRe = mustCompileAll("(?i)",
		`\s*Σ(?P<season>\d+)\s*:ΕΠ(?P<episode>\d+)\s*`,
		`\s*S(?P<season>\d+)\s*:E(?P<episode>\d+)\s*`,
	)
)

// ERTGRExtractor scrapes ERTFLIX (ertflix.gr) video pages. The HLS manifest
// is found in the player page embedded by the video page.
type ERTGRExtractor struct {
	*BaseExtractor
	pages   interfaces.PageFetcher
	formats interfaces.FormatResolver
	log     *logging.Logger
}

// NewERTGRExtractor creates a new ERTFLIX extractor. When formats is nil the
// manifest is returned as a single unresolved format.
func NewERTGRExtractor(base *BaseExtractor, formats interfaces.FormatResolver, log *logging.Logger) *ERTGRExtractor {
	return &ERTGRExtractor{
		BaseExtractor: base,
		pages:         base,
		formats:       formats,
		log:           log.WithComponent("ertgr-extractor"),
	}
}

// Name returns the extractor name.
func (e *ERTGRExtractor) Name() string {
	return "ertgr"
}

// CanExtract returns true for ertflix.gr video URLs.
func (e *ERTGRExtractor) CanExtract(url string) bool {
	return ertgrURLRe.MatchString(url)
}

// Extract scrapes the video page at url into a metadata record.
func (e *ERTGRExtractor) Extract(ctx context.Context, url string, opts types.ExtractOptions) (*types.InfoDict, error) {
	m := ertgrURLRe.FindStringSubmatch(url)
	if m == nil {
		return nil, &ExtractorError{Extractor: e.Name(), Msg: "unsupported URL " + url, Expected: true}
	}
	videoID := m[ertgrURLRe.SubexpIndex("id")]
	log := e.log.WithVideoID(videoID)

	webpage, err := e.pages.DownloadWebpage(ctx, url, videoID, opts)
	if err != nil {
		return nil, e.fail(videoID, "failed to download video page", err)
	}

	playerURL, _, err := e.SearchRegex(ertgrIframeRe, webpage, "player url", SearchOptions{Fatal: true})
	if err != nil {
		return nil, e.fail(videoID, "page layout not recognised", err)
	}
	playerURL = urlutil.ResolveURL(playerURL, url)
	log.Debug("found player", "player_url", playerURL)

	player, err := e.pages.DownloadWebpage(ctx, playerURL, videoID, opts)
	if err != nil {
		return nil, e.fail(videoID, "failed to download player page", err)
	}

	manifestURL, _, err := e.SearchRegex(ertgrManifestRe, player, "m3u8 url", SearchOptions{Fatal: true})
	if err != nil {
		return nil, e.fail(videoID, "player layout not recognised", err)
	}
	manifestURL = urlutil.ResolveURL(manifestURL, playerURL)

	title, _, err := e.HTMLSearchRegex(ertgrTitleRe, webpage, "title", SearchOptions{Fatal: true})
	if err != nil {
		return nil, e.fail(videoID, "page layout not recognised", err)
	}

	formats, err := e.resolveFormats(ctx, manifestURL, videoID)
	if err != nil {
		return nil, e.fail(videoID, "failed to resolve formats", err)
	}

	info := &types.InfoDict{
		ID:            videoID,
		Title:         title,
		Description:   cleanDescription(descriptionScanner.Scan(webpage)),
		Formats:       formats,
		IsLive:        e.liveFlag(player),
		SeasonNumber:  e.episodeField(webpage, "season"),
		EpisodeNumber: e.episodeField(webpage, "episode"),
		WebpageURL:    url,
		Extractor:     e.Name(),
	}
	if uploader, ok, _ := e.HTMLSearchRegex(ertgrUploaderRe, webpage, "uploader", SearchOptions{}); ok {
		info.Uploader = &uploader
	}
	if poster, ok, _ := e.SearchRegex(ertgrPosterRe, player, "thumbnail", SearchOptions{}); ok {
		info.Thumbnail = &poster
	}

	log.Debug("extracted video", "title", info.Title, "formats", len(info.Formats))
	return info, nil
}

func (e *ERTGRExtractor) resolveFormats(ctx context.Context, manifestURL, videoID string) ([]types.Format, error) {
	if e.formats == nil {
		return []types.Format{{
			FormatID:    "hls",
			URL:         manifestURL,
			ManifestURL: manifestURL,
			Ext:         "mp4",
			Protocol:    types.ProtocolM3U8Native,
		}}, nil
	}
	return e.formats.ExtractM3U8Formats(ctx, manifestURL, videoID, "mp4", "hls", true)
}

// liveFlag maps the player's isLive token to true, false or unknown.
func (e *ERTGRExtractor) liveFlag(player string) *bool {
	none := ""
	token, _, _ := e.SearchRegex(ertgrLiveRe, player, "is live", SearchOptions{Default: &none})
	var live bool
	switch strings.ToLower(token) {
	case "true":
		live = true
	case "false":
		live = false
	default:
		return nil
	}
	return &live
}

func (e *ERTGRExtractor) episodeField(webpage, group string) *int {
	none := ""
	v, ok, _ := e.SearchRegex(ertgrEpisodeRe, webpage, group+" number", SearchOptions{Default: &none, Group: group})
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func (e *ERTGRExtractor) fail(videoID, msg string, err error) error {
	var miss *RegexNotFoundError
	return &ExtractorError{
		Extractor: e.Name(),
		VideoID:   videoID,
		Msg:       msg,
		Expected:  errors.As(err, &miss),
		Err:       err,
	}
}

var _ interfaces.Extractor = (*ERTGRExtractor)(nil)
