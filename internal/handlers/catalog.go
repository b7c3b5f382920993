package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/novastream/gateway/internal/logging"
	"github.com/novastream/gateway/internal/media"
)

const maxUpdateBody = 64 << 10

// catalog holds what the video and image handlers share: the store, the
// folder their assets live under and the upload bounds.
type catalog struct {
	store      media.Store
	kind       media.Kind
	folder     string
	maxResults int
	uploads    *UploadLimiter
	limits     UploadLimits
}

func (c catalog) list(r *http.Request) ([]media.Resource, error) {
	ctx := r.Context()
	done := logging.TrackUpstream(ctx, "list", "kind", c.kind, "folder", c.folder)
	resources, err := c.store.List(ctx, media.ListQuery{
		Kind:       c.kind,
		Prefix:     strings.TrimSuffix(c.folder, "/") + "/",
		MaxResults: c.maxResults,
	})
	done(err)
	return resources, err
}

// upload buffers the file part named field and hands it to the store. build
// turns the parsed form into the provider metadata.
func (c catalog) upload(w http.ResponseWriter, r *http.Request, field string, build func(*uploadForm) (media.Metadata, []string)) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if err := c.uploads.Acquire(ctx); err != nil {
		logger.Warn("upload abandoned while waiting for a slot", "error", err)
		respondJSON(ctx, w, http.StatusServiceUnavailable, failureMessage("Upload capacity unavailable"))
		return
	}
	defer c.uploads.Release()

	form, err := readUpload(w, r, field, c.limits)
	if err != nil {
		status, message := uploadStatus(err)
		logger.Warn("upload rejected", "error", err, "status", status)
		respondJSON(ctx, w, status, failureMessage(message))
		return
	}

	metadata, tags := build(form)
	size := int64(form.File.Len())

	done := logging.TrackUpstream(ctx, "upload", "kind", c.kind, "bytes", size, "filename", form.Filename)
	descriptor, err := c.store.Upload(ctx, media.UploadInput{
		Kind:        c.kind,
		Folder:      c.folder,
		Filename:    form.Filename,
		ContentType: form.ContentType,
		Size:        size,
		Body:        bytes.NewReader(form.File.Bytes()),
		Metadata:    metadata,
		Tags:        tags,
	})
	done(err)
	if err != nil {
		respondJSON(ctx, w, http.StatusInternalServerError, failureMessage(upstreamMessage(err)))
		return
	}

	respondJSON(ctx, w, http.StatusOK, success(string(c.kind), descriptor))
}

func (c catalog) update(w http.ResponseWriter, r *http.Request, build func(updateRequest) (map[string]string, []string)) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	publicID, ok := strings.CutSuffix(r.PathValue("rest"), "/update")
	if !ok || publicID == "" {
		http.NotFound(w, r)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("invalid update payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, failureError("invalid request body"))
		return
	}

	ctxMap, tags := build(req)
	done := logging.TrackUpstream(ctx, "update", "kind", c.kind, "publicId", publicID)
	err := c.store.Update(ctx, media.UpdateInput{
		Kind:     c.kind,
		PublicID: publicID,
		Context:  ctxMap,
		Tags:     tags,
	})
	done(err)
	if err != nil {
		respondJSON(ctx, w, http.StatusInternalServerError, failureError(upstreamMessage(err)))
		return
	}

	respondJSON(ctx, w, http.StatusOK, success())
}

func (c catalog) destroy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	publicID := r.PathValue("id")
	if publicID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, failureError("resource id is required"))
		return
	}

	done := logging.TrackUpstream(ctx, "destroy", "kind", c.kind, "publicId", publicID)
	result, err := c.store.Destroy(ctx, media.DestroyInput{
		Kind:       c.kind,
		PublicID:   publicID,
		Invalidate: true,
	})
	done(err)
	if err != nil {
		respondJSON(ctx, w, http.StatusInternalServerError, failureError(upstreamMessage(err)))
		return
	}

	respondJSON(ctx, w, http.StatusOK, success("result", result))
}

// updateRequest carries the editable metadata of either kind.
type updateRequest struct {
	Title      looseString `json:"title"`
	Collection looseString `json:"collection"`
	ThumbTime  looseString `json:"thumbTime"`
	Playlist   looseString `json:"playlist"`
}

// looseString accepts a JSON string, number or boolean. Players post
// thumbTime as a number.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = looseString(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*s = looseString(strconv.FormatBool(b))
		return nil
	}
	return fmt.Errorf("expected string or number, got %s", data)
}

func (s looseString) or(fallback string) string {
	if v := strings.TrimSpace(string(s)); v != "" {
		return v
	}
	return fallback
}

// upstreamMessage is the provider's own message when err came from the store.
func upstreamMessage(err error) string {
	var upstream *media.UpstreamError
	if errors.As(err, &upstream) && upstream.Err != nil {
		return upstream.Err.Error()
	}
	return err.Error()
}
