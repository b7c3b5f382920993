package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"golang.org/x/sync/semaphore"
)

// bodySlack is the allowance on top of the file cap for multipart framing and
// text fields.
const bodySlack = 1 << 20

var (
	errNotMultipart  = errors.New("request is not multipart")
	errNoFile        = errors.New("no file")
	errFileTooLarge  = errors.New("file exceeds upload limit")
	errFieldTooLarge = errors.New("form field exceeds limit")
)

// UploadLimiter bounds the number of uploads buffered in memory at once.
// A nil limiter admits every upload.
type UploadLimiter struct {
	sem *semaphore.Weighted
}

// NewUploadLimiter admits at most n concurrent uploads; n <= 0 means no limit.
func NewUploadLimiter(n int) *UploadLimiter {
	if n <= 0 {
		return nil
	}
	return &UploadLimiter{sem: semaphore.NewWeighted(int64(n))}
}

// Acquire waits for a slot until ctx is done.
func (l *UploadLimiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.sem.Acquire(ctx, 1)
}

// Release returns a slot taken by Acquire.
func (l *UploadLimiter) Release() {
	if l == nil {
		return
	}
	l.sem.Release(1)
}

// UploadLimits caps the size of an upload request.
type UploadLimits struct {
	MaxFileBytes  int64
	MaxFieldBytes int64
}

// uploadForm is a parsed upload request. The file buffer belongs to the
// request that produced it.
type uploadForm struct {
	Filename    string
	ContentType string
	File        *bytes.Buffer
	Fields      map[string]string
}

func (f *uploadForm) Field(name string) string {
	return f.Fields[name]
}

// readUpload streams the multipart body of r, keeping the part named
// fileField in memory and the text fields as strings. Nothing touches disk.
func readUpload(w http.ResponseWriter, r *http.Request, fileField string, limits UploadLimits) (*uploadForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxFileBytes+bodySlack)

	reader, err := r.MultipartReader()
	if err != nil {
		return nil, errNotMultipart
	}

	form := &uploadForm{Fields: make(map[string]string)}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, classifyBodyError(err)
		}

		if err := form.consume(part, fileField, limits); err != nil {
			part.Close()
			return nil, err
		}
		part.Close()
	}

	if form.File == nil {
		return nil, errNoFile
	}
	return form, nil
}

func (f *uploadForm) consume(part *multipart.Part, fileField string, limits UploadLimits) error {
	name := part.FormName()
	if name == "" {
		return nil
	}

	if part.FileName() == "" && name != fileField {
		if _, seen := f.Fields[name]; seen {
			return nil
		}
		value, err := io.ReadAll(io.LimitReader(part, limits.MaxFieldBytes+1))
		if err != nil {
			return classifyBodyError(err)
		}
		if int64(len(value)) > limits.MaxFieldBytes {
			return errFieldTooLarge
		}
		f.Fields[name] = string(value)
		return nil
	}

	// Only the first file part under fileField is kept; other file parts are
	// discarded as they stream past.
	if name != fileField || f.File != nil {
		if _, err := io.Copy(io.Discard, part); err != nil {
			return classifyBodyError(err)
		}
		return nil
	}

	buf := new(bytes.Buffer)
	n, err := io.Copy(buf, io.LimitReader(part, limits.MaxFileBytes+1))
	if err != nil {
		return classifyBodyError(err)
	}
	if n > limits.MaxFileBytes {
		return errFileTooLarge
	}
	if n == 0 && part.FileName() == "" {
		// An empty file input still sends a part.
		return nil
	}

	f.File = buf
	f.Filename = part.FileName()
	f.ContentType = part.Header.Get("Content-Type")
	return nil
}

func classifyBodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errFileTooLarge
	}
	return err
}

// uploadStatus maps a readUpload error onto the response status and message.
func uploadStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errNoFile):
		return http.StatusBadRequest, "No file"
	case errors.Is(err, errNotMultipart):
		return http.StatusBadRequest, "Expected multipart/form-data"
	case errors.Is(err, errFieldTooLarge):
		return http.StatusBadRequest, "Form field too large"
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge, "File too large"
	default:
		return http.StatusBadRequest, "Malformed upload"
	}
}
