// Package types defines core domain types used throughout the application.
package types

// Protocol identifies how a format is downloaded.
type Protocol string

const (
	ProtocolM3U8Native Protocol = "m3u8_native"
	ProtocolM3U8       Protocol = "m3u8"
	ProtocolHTTPS      Protocol = "https"
)

// InfoDict is the metadata record produced by an extractor for a single video.
// Optional fields are pointers so that "absent" and "zero" stay distinguishable
// in the JSON output.
type InfoDict struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Uploader      *string  `json:"uploader,omitempty"`
	Thumbnail     *string  `json:"thumbnail,omitempty"`
	Formats       []Format `json:"formats"`
	IsLive        *bool    `json:"is_live"`
	SeasonNumber  *int     `json:"season_number"`
	EpisodeNumber *int     `json:"episode_number"`

	WebpageURL string `json:"webpage_url,omitempty"`
	Extractor  string `json:"extractor,omitempty"`
}

// BestFormat returns the last format, formats being ordered worst to best.
func (d *InfoDict) BestFormat() (Format, bool) {
	if d == nil || len(d.Formats) == 0 {
		return Format{}, false
	}
	return d.Formats[len(d.Formats)-1], true
}

// Format describes one playable variant of a video.
type Format struct {
	FormatID    string   `json:"format_id"`
	URL         string   `json:"url"`
	ManifestURL string   `json:"manifest_url,omitempty"`
	Ext         string   `json:"ext"`
	Protocol    Protocol `json:"protocol"`
	TBR         float64  `json:"tbr,omitempty"` // kbit/s
	Width       int      `json:"width,omitempty"`
	Height      int      `json:"height,omitempty"`
	FPS         float64  `json:"fps,omitempty"`
	VCodec      string   `json:"vcodec,omitempty"`
	ACodec      string   `json:"acodec,omitempty"`
}

// ExtractOptions contains optional parameters for extraction.
type ExtractOptions struct {
	Headers      map[string]string
	ForceRefresh bool
}
