package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/novastream/gateway/internal/config"
	"github.com/novastream/gateway/internal/media"
)

const deliveryTypeUpload = "upload"

// cloudinaryUploader is the subset of the Cloudinary upload API the store uses.
type cloudinaryUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
	AddContext(ctx context.Context, params uploader.AddContextParams) (*uploader.AddContextResult, error)
	Explicit(ctx context.Context, params uploader.ExplicitParams) (*uploader.ExplicitResult, error)
}

// cloudinaryAdmin is the subset of the Cloudinary admin API the store uses.
type cloudinaryAdmin interface {
	Assets(ctx context.Context, params admin.AssetsParams) (*admin.AssetsResult, error)
}

// Cloudinary implements media.Store against the Cloudinary upload and admin APIs.
type Cloudinary struct {
	upload cloudinaryUploader
	admin  cloudinaryAdmin
}

// NewCloudinary configures a client for the given account. Delivery URLs use https.
func NewCloudinary(cfg config.CloudinaryConfig) (*Cloudinary, error) {
	if strings.TrimSpace(cfg.CloudName) == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("cloudinary storage: cloud name, api key and api secret are required")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary storage: %w", err)
	}
	cld.Config.URL.Secure = true

	return &Cloudinary{upload: &cld.Upload, admin: &cld.Admin}, nil
}

// Upload streams in.Body to Cloudinary and returns its upload response.
func (c *Cloudinary) Upload(ctx context.Context, in media.UploadInput) (media.Descriptor, error) {
	if !in.Kind.Valid() {
		return nil, media.ErrInvalidKind
	}

	result, err := c.upload.Upload(ctx, uploadBody(in), uploader.UploadParams{
		Folder:       in.Folder,
		ResourceType: string(in.Kind),
		Context:      in.Metadata.Context(),
		Tags:         in.Tags,
	})
	if err != nil {
		return nil, media.Upstream("upload", err)
	}
	if result == nil {
		return nil, media.Upstream("upload", errors.New("empty response"))
	}
	if result.Error.Message != "" {
		return nil, media.Upstream("upload", errors.New(result.Error.Message))
	}

	return uploadDescriptor(result)
}

// uploadBody hands the SDK a sized reader when it can. The SDK splits only
// section readers and files into chunks, and Cloudinary refuses single
// requests over 100 MB.
func uploadBody(in media.UploadInput) io.Reader {
	if ra, ok := in.Body.(io.ReaderAt); ok && in.Size > 0 {
		return io.NewSectionReader(ra, 0, in.Size)
	}
	return in.Body
}

func uploadDescriptor(result *uploader.UploadResult) (media.Descriptor, error) {
	if descriptor, err := json.Marshal(result); err == nil {
		return descriptor, nil
	}

	// Some SDK fields do not marshal; keep the ones clients rely on.
	descriptor, err := json.Marshal(map[string]any{
		"public_id":     result.PublicID,
		"secure_url":    result.SecureURL,
		"resource_type": result.ResourceType,
		"format":        result.Format,
		"bytes":         result.Bytes,
		"width":         result.Width,
		"height":        result.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("encode upload result: %w", err)
	}
	return descriptor, nil
}

// List returns up to q.MaxResults uploaded assets of q.Kind under q.Prefix,
// with tags and context.
func (c *Cloudinary) List(ctx context.Context, q media.ListQuery) ([]media.Resource, error) {
	assetType := api.Image
	switch q.Kind {
	case media.KindVideo:
		assetType = api.Video
	case media.KindImage:
	default:
		return nil, media.ErrInvalidKind
	}

	result, err := c.admin.Assets(ctx, admin.AssetsParams{
		AssetType:    assetType,
		DeliveryType: deliveryTypeUpload,
		Prefix:       q.Prefix,
		MaxResults:   q.MaxResults,
		Tags:         api.Bool(true),
		Context:      api.Bool(true),
	})
	if err != nil {
		return nil, media.Upstream("list", err)
	}
	if result == nil {
		return nil, media.Upstream("list", errors.New("empty response"))
	}
	if result.Error.Message != "" {
		return nil, media.Upstream("list", errors.New(result.Error.Message))
	}

	resources := make([]media.Resource, 0, len(result.Assets))
	for _, asset := range result.Assets {
		// Re-read each asset through its wire form so context.custom is
		// available however the SDK models it.
		raw, err := json.Marshal(asset)
		if err != nil {
			return nil, fmt.Errorf("encode listed asset: %w", err)
		}
		resource, err := decodeCloudinaryAsset(raw)
		if err != nil {
			return nil, err
		}
		resources = append(resources, resource)
	}
	return resources, nil
}

// Update merges in.Context into the asset's context and, when tags are given,
// replaces its tags.
func (c *Cloudinary) Update(ctx context.Context, in media.UpdateInput) error {
	if !in.Kind.Valid() {
		return media.ErrInvalidKind
	}

	if len(in.Context) > 0 {
		result, err := c.upload.AddContext(ctx, uploader.AddContextParams{
			Context:      in.Context,
			PublicIDs:    []string{in.PublicID},
			ResourceType: string(in.Kind),
			Type:         deliveryTypeUpload,
		})
		if err != nil {
			return media.Upstream("add context", err)
		}
		if result != nil && result.Error.Message != "" {
			return media.Upstream("add context", errors.New(result.Error.Message))
		}
	}

	if len(in.Tags) > 0 {
		result, err := c.upload.Explicit(ctx, uploader.ExplicitParams{
			PublicID:     in.PublicID,
			ResourceType: string(in.Kind),
			Type:         deliveryTypeUpload,
			Tags:         in.Tags,
		})
		if err != nil {
			return media.Upstream("replace tags", err)
		}
		if result != nil && result.Error.Message != "" {
			return media.Upstream("replace tags", errors.New(result.Error.Message))
		}
	}
	return nil
}

// Destroy deletes the asset. Cloudinary answers "not found" for absent assets,
// which is passed back as a result rather than an error.
func (c *Cloudinary) Destroy(ctx context.Context, in media.DestroyInput) (string, error) {
	if !in.Kind.Valid() {
		return "", media.ErrInvalidKind
	}

	result, err := c.upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     in.PublicID,
		ResourceType: string(in.Kind),
		Type:         deliveryTypeUpload,
		Invalidate:   api.Bool(in.Invalidate),
	})
	if err != nil {
		return "", media.Upstream("destroy", err)
	}
	if result == nil {
		return "", media.Upstream("destroy", errors.New("empty response"))
	}
	if result.Error.Message != "" {
		return "", media.Upstream("destroy", errors.New(result.Error.Message))
	}
	return result.Result, nil
}

type cloudinaryAsset struct {
	PublicID  string    `json:"public_id"`
	SecureURL string    `json:"secure_url"`
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	Bytes     int64     `json:"bytes"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"created_at"`
	Tags      []string  `json:"tags"`
	Context   struct {
		Custom map[string]string `json:"custom"`
	} `json:"context"`
}

func decodeCloudinaryAsset(raw []byte) (media.Resource, error) {
	var asset cloudinaryAsset
	if err := json.Unmarshal(raw, &asset); err != nil {
		return media.Resource{}, fmt.Errorf("decode listed asset: %w", err)
	}

	url := asset.SecureURL
	if url == "" {
		url = asset.URL
	}
	ctx := asset.Context.Custom
	if ctx == nil {
		ctx = map[string]string{}
	}

	return media.Resource{
		PublicID:  asset.PublicID,
		URL:       url,
		Format:    asset.Format,
		Bytes:     asset.Bytes,
		Width:     asset.Width,
		Height:    asset.Height,
		CreatedAt: asset.CreatedAt,
		Tags:      asset.Tags,
		Context:   ctx,
	}, nil
}
