package handlers

import (
	"net/http"

	"github.com/novastream/gateway/internal/auth"
	"github.com/novastream/gateway/internal/media"
)

// VideoHandler implements the video library endpoints.
type VideoHandler struct {
	Store      media.Store
	Folder     string
	MaxResults int
	Uploads    *UploadLimiter
	Limits     UploadLimits
}

func (h VideoHandler) catalog() catalog {
	return catalog{
		store:      h.Store,
		kind:       media.KindVideo,
		folder:     h.Folder,
		maxResults: h.MaxResults,
		uploads:    h.Uploads,
		limits:     h.Limits,
	}
}

// List handles GET /api/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	resources, err := h.catalog().list(r)
	if err != nil {
		respondJSON(r.Context(), w, http.StatusInternalServerError, failureError(upstreamMessage(err)))
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, media.VideoViews(resources))
}

// Upload handles POST /api/upload with a multipart "video" file.
func (h VideoHandler) Upload(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	h.catalog().upload(w, r, "video", func(form *uploadForm) (media.Metadata, []string) {
		metadata := media.Metadata{
			Title:       orDefault(form.Field("title"), media.DefaultTitle),
			Description: form.Field("description"),
			ThumbTime:   form.Field("thumbTime"),
		}
		var tags []string
		if playlist := form.Field("playlist"); playlist != "" {
			tags = []string{playlist}
		}
		return metadata, tags
	})
}

// Update handles POST /api/videos/{id}/update, rewriting the thumbnail time
// and playlist.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	h.catalog().update(w, r, func(req updateRequest) (map[string]string, []string) {
		playlist := req.Playlist.or(media.DefaultCollection)
		return map[string]string{
			media.ContextThumbTime: req.ThumbTime.or(media.DefaultThumbTime),
			media.ContextPlaylist:  playlist,
		}, []string{playlist}
	})
}

// Delete handles DELETE /api/videos/{id}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	h.catalog().destroy(w, r)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
