package adapter

import (
	"context"
	"net/http"
)

// ChannelMetadata is the confirmation-screen summary for a candidate
// channel URL.
type ChannelMetadata struct {
	Name            string `json:"name"`
	SubscriberCount int    `json:"subscriber_count"`
	VideoCount      int    `json:"video_count"`
	Description     string `json:"description"`
}

// VideoSummary is one entry in a channel's recent-videos listing.
type VideoSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
	PublishedAt  string `json:"published_at"`
}

// Metadata is the typed wrapper over the channel-metadata extraction
// backend: channel info, recent videos, and per-video transcripts.
type Metadata struct {
	baseURL string
	client  *http.Client
}

// NewMetadata builds a Metadata adapter pointed at baseURL.
func NewMetadata(baseURL string, client *http.Client) *Metadata {
	if client == nil {
		client = http.DefaultClient
	}
	return &Metadata{baseURL: baseURL, client: client}
}

// ChannelInfo fetches name/subscriber/video-count/description for a
// channel URL.
func (m *Metadata) ChannelInfo(ctx context.Context, channelURL string) (ChannelMetadata, error) {
	var resp ChannelMetadata
	if err := m.postJSON(ctx, "/channel_info", map[string]any{"url": channelURL}, &resp); err != nil {
		return ChannelMetadata{}, err
	}
	return resp, nil
}

// RecentVideos fetches up to limit recent videos for a channel URL.
func (m *Metadata) RecentVideos(ctx context.Context, channelURL string, limit int) ([]VideoSummary, error) {
	var resp struct {
		Videos []VideoSummary `json:"videos"`
	}
	if err := m.postJSON(ctx, "/recent_videos", map[string]any{"url": channelURL, "limit": limit}, &resp); err != nil {
		return nil, err
	}
	return resp.Videos, nil
}

// Transcript fetches a single video's transcript, truncated to maxChars.
func (m *Metadata) Transcript(ctx context.Context, videoID string, maxChars int) (string, error) {
	var resp struct {
		Text string `json:"text"`
	}
	if err := m.postJSON(ctx, "/transcript", map[string]any{"video_id": videoID}, &resp); err != nil {
		return "", err
	}
	text := resp.Text
	if len(text) > maxChars {
		text = text[:maxChars]
	}
	return text, nil
}

func (m *Metadata) postJSON(ctx context.Context, path string, body any, out any) error {
	return postJSON(ctx, m.client, m.baseURL+path, body, out, "metadata")
}
