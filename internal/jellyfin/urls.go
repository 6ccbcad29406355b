package jellyfin

import (
	"fmt"
	"net/url"
)

// Image presets. The low-quality tier exists for small surfaces (mini
// player) and for the first frame of a progressive load; the grid tier
// sits in between for library thumbnails.
type ImagePreset int

const (
	ImageLQ ImagePreset = iota
	ImageGrid
	ImageHQ
)

// maxStreamingBitrate caps the transcoded stream. Combined with the
// forced AAC codec it keeps the stream playable on decoders that cannot
// handle arbitrary source containers.
const maxStreamingBitrate = 320000

func (p ImagePreset) size() (px, quality int) {
	switch p {
	case ImageLQ:
		return 120, 70
	case ImageHQ:
		return 512, 90
	default:
		return 300, 90
	}
}

// ImageURL builds the primary-image URL for an item at the given preset.
// Returns "" when itemID is empty so callers can treat "no album" and
// "no artwork" uniformly.
func (c *Client) ImageURL(itemID string, preset ImagePreset) string {
	if itemID == "" {
		return ""
	}
	px, quality := preset.size()
	return fmt.Sprintf("%s/Items/%s/Images/Primary?maxHeight=%d&maxWidth=%d&quality=%d",
		c.session.ServerURL, itemID, px, px, quality)
}

// StreamURL builds the audio stream URL for a track, forcing a
// transcode to AAC under the bitrate ceiling.
func (c *Client) StreamURL(trackID string) string {
	query := url.Values{}
	query.Set("AudioCodec", "aac")
	query.Set("MaxStreamingBitrate", fmt.Sprintf("%d", maxStreamingBitrate))
	query.Set("api_key", c.session.Token)
	return fmt.Sprintf("%s/Audio/%s/stream?%s", c.session.ServerURL, trackID, query.Encode())
}
