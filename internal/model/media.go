package model

import "time"

// MonumentAudio is one narration track for a monument
type MonumentAudio struct {
	ID         string    `json:"id"`
	MonumentID string    `json:"monument_id"`
	AudioURL   string    `json:"audio_url"`
	Language   string    `json:"language"` // Display language, used for ordering
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
}

// GalleryImage is one image in a monument gallery
type GalleryImage struct {
	ID         string    `json:"id"`
	MonumentID string    `json:"monument_id"`
	ImageURL   string    `json:"image_url"`
	Title      *string   `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
}

// MonumentEmbed holds raw third-party viewer fragments. At most one row
// exists per monument.
type MonumentEmbed struct {
	ID                    string    `json:"id"`
	MonumentID            string    `json:"monument_id"`
	SketchfabEmbed        *string   `json:"sketchfab_embed"`          // 3D model viewer iframe
	GoogleStreetViewEmbed *string   `json:"google_street_view_embed"` // 360° street view iframe
	YouTubeEmbed          *string   `json:"youtube_embed"`            // Video iframe
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}
