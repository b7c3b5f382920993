package handlers

import (
	"net/http"

	"github.com/novastream/gateway/internal/auth"
	"github.com/novastream/gateway/internal/media"
)

// ImageHandler implements the photo gallery endpoints. The collection of an
// image is carried as its tag.
type ImageHandler struct {
	Store      media.Store
	Folder     string
	MaxResults int
	Uploads    *UploadLimiter
	Limits     UploadLimits
}

func (h ImageHandler) catalog() catalog {
	return catalog{
		store:      h.Store,
		kind:       media.KindImage,
		folder:     h.Folder,
		maxResults: h.MaxResults,
		uploads:    h.Uploads,
		limits:     h.Limits,
	}
}

// List handles GET /api/images.
func (h ImageHandler) List(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	resources, err := h.catalog().list(r)
	if err != nil {
		respondJSON(r.Context(), w, http.StatusInternalServerError, failureError(upstreamMessage(err)))
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, media.ImageViews(resources))
}

// Upload handles POST /api/upload-image with a multipart "image" file.
func (h ImageHandler) Upload(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	h.catalog().upload(w, r, "image", func(form *uploadForm) (media.Metadata, []string) {
		collection := orDefault(form.Field("collection"), media.DefaultCollection)
		return media.Metadata{
			Title:       orDefault(form.Field("title"), media.DefaultTitle),
			Description: form.Field("description"),
			Collection:  collection,
		}, []string{collection}
	})
}

// Update handles POST /api/images/{id}/update, renaming the image or moving
// it to another collection.
func (h ImageHandler) Update(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	h.catalog().update(w, r, func(req updateRequest) (map[string]string, []string) {
		collection := req.Collection.or(media.DefaultCollection)
		return map[string]string{
			media.ContextTitle:      req.Title.or(media.DefaultTitle),
			media.ContextCollection: collection,
		}, []string{collection}
	})
}

// Delete handles DELETE /api/images/{id}.
func (h ImageHandler) Delete(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	h.catalog().destroy(w, r)
}
