package media

import "time"

// VideoView is the flattened video record the front end consumes.
type VideoView struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Playlist    string    `json:"playlist"`
	ThumbTime   string    `json:"thumbTime"`
}

// ImageView is the flattened image record the front end consumes.
type ImageView struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Collection  string    `json:"collection"`
	Size        int64     `json:"size"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Format      string    `json:"format"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// NewVideoView maps a video resource, applying defaults for absent metadata.
// The playlist is the first tag, falling back to the playlist context key.
func NewVideoView(r Resource) VideoView {
	return VideoView{
		ID:          r.PublicID,
		URL:         r.URL,
		Title:       orDefault(r.Context[ContextTitle], DefaultTitle),
		Description: r.Context[ContextDescription],
		Size:        r.Bytes,
		UploadedAt:  r.CreatedAt,
		Playlist:    orDefault(firstTag(r.Tags), orDefault(r.Context[ContextPlaylist], DefaultCollection)),
		ThumbTime:   orDefault(r.Context[ContextThumbTime], DefaultThumbTime),
	}
}

// NewImageView maps an image resource, applying defaults for absent metadata.
// The collection is the first tag, falling back to the collection context key.
func NewImageView(r Resource) ImageView {
	return ImageView{
		ID:          r.PublicID,
		URL:         r.URL,
		Title:       orDefault(r.Context[ContextTitle], DefaultTitle),
		Description: r.Context[ContextDescription],
		Collection:  orDefault(firstTag(r.Tags), orDefault(r.Context[ContextCollection], DefaultCollection)),
		Size:        r.Bytes,
		Width:       r.Width,
		Height:      r.Height,
		Format:      r.Format,
		UploadedAt:  r.CreatedAt,
	}
}

// VideoViews maps every resource. The result is never nil.
func VideoViews(resources []Resource) []VideoView {
	out := make([]VideoView, 0, len(resources))
	for _, r := range resources {
		out = append(out, NewVideoView(r))
	}
	return out
}

// ImageViews maps every resource. The result is never nil.
func ImageViews(resources []Resource) []ImageView {
	out := make([]ImageView, 0, len(resources))
	for _, r := range resources {
		out = append(out, NewImageView(r))
	}
	return out
}

func firstTag(tags []string) string {
	for _, t := range tags {
		if t != "" {
			return t
		}
	}
	return ""
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
