package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/novastream/gateway/internal/config"
	"github.com/novastream/gateway/internal/media"
)

// Object metadata keys used to keep provider context alongside each object.
const (
	metaContext = "nova-context"
	metaTags    = "nova-tags"
)

type s3Client interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3 implements media.Store on an S3-compatible bucket. Objects are keyed
// <folder>/<uuid><ext>; the public id is the key without its extension.
type S3 struct {
	client   s3Client
	uploader s3Uploader
	bucket   string
	baseURL  string

	newID func() string
	now   func() time.Time
}

// NewS3 configures a client and multipart uploader for the configured bucket.
func NewS3(ctx context.Context, cfg config.S3Config) (*S3, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 storage: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 8 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return newS3(client, uploader, cfg), nil
}

func newS3(client s3Client, uploader s3Uploader, cfg config.S3Config) *S3 {
	return &S3{
		client:   client,
		uploader: uploader,
		bucket:   cfg.Bucket,
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Upload streams in.Body into a new object under in.Folder.
func (s *S3) Upload(ctx context.Context, in media.UploadInput) (media.Descriptor, error) {
	if !in.Kind.Valid() {
		return nil, media.ErrInvalidKind
	}

	ext := strings.ToLower(path.Ext(in.Filename))
	publicID := joinKey(in.Folder, s.newID())
	key := publicID + ext

	contentType := in.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			contentType = byExt
		}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctxMap := in.Metadata.Context()
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        manager.ReadSeekCloser(in.Body),
		ContentType: aws.String(contentType),
		Metadata:    encodeObjectMetadata(ctxMap, in.Tags),
	})
	if err != nil {
		return nil, media.Upstream("upload", fmt.Errorf("put %s: %w", key, err))
	}

	descriptor, err := json.Marshal(s3Descriptor{
		PublicID:     publicID,
		Key:          key,
		Bucket:       s.bucket,
		ResourceType: string(in.Kind),
		Format:       strings.TrimPrefix(ext, "."),
		Bytes:        in.Size,
		CreatedAt:    s.now().UTC(),
		SecureURL:    s.objectURL(key),
		Tags:         nonNilTags(in.Tags),
		Context:      s3DescriptorContext{Custom: ctxMap},
	})
	if err != nil {
		return nil, fmt.Errorf("encode upload descriptor: %w", err)
	}
	return descriptor, nil
}

// List returns objects under q.Prefix with their stored context and tags.
func (s *S3) List(ctx context.Context, q media.ListQuery) ([]media.Resource, error) {
	if !q.Kind.Valid() {
		return nil, media.ErrInvalidKind
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(q.Prefix),
	}
	if q.MaxResults > 0 {
		input.MaxKeys = aws.Int32(int32(q.MaxResults))
	}

	listed, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, media.Upstream("list", err)
	}

	resources := make([]media.Resource, 0, len(listed.Contents))
	for _, obj := range listed.Contents {
		key := aws.ToString(obj.Key)
		if key == "" || strings.HasSuffix(key, "/") {
			continue
		}

		head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, media.Upstream("list", fmt.Errorf("head %s: %w", key, err))
		}

		ctxMap, tags := decodeObjectMetadata(head.Metadata)
		resources = append(resources, media.Resource{
			PublicID:  strings.TrimSuffix(key, path.Ext(key)),
			URL:       s.objectURL(key),
			Format:    strings.TrimPrefix(strings.ToLower(path.Ext(key)), "."),
			Bytes:     aws.ToInt64(obj.Size),
			CreatedAt: aws.ToTime(obj.LastModified).UTC(),
			Tags:      tags,
			Context:   ctxMap,
		})
	}
	return resources, nil
}

// Update rewrites the object's metadata in place, merging context keys.
func (s *S3) Update(ctx context.Context, in media.UpdateInput) error {
	if !in.Kind.Valid() {
		return media.ErrInvalidKind
	}

	key, err := s.resolveKey(ctx, in.PublicID)
	if err != nil {
		return media.Upstream("update", err)
	}
	if key == "" {
		return media.Upstream("update", fmt.Errorf("resource %s not found", in.PublicID))
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return media.Upstream("update", fmt.Errorf("head %s: %w", key, err))
	}

	ctxMap, tags := decodeObjectMetadata(head.Metadata)
	for k, v := range in.Context {
		ctxMap[k] = v
	}
	if len(in.Tags) > 0 {
		tags = in.Tags
	}

	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(key),
		CopySource:        aws.String(url.PathEscape(s.bucket + "/" + key)),
		ContentType:       head.ContentType,
		Metadata:          encodeObjectMetadata(ctxMap, tags),
		MetadataDirective: s3types.MetadataDirectiveReplace,
	})
	if err != nil {
		return media.Upstream("update", fmt.Errorf("copy %s: %w", key, err))
	}
	return nil
}

// Destroy deletes the object behind publicID. A missing object yields the
// result "not found" and no error.
func (s *S3) Destroy(ctx context.Context, in media.DestroyInput) (string, error) {
	if !in.Kind.Valid() {
		return "", media.ErrInvalidKind
	}

	key, err := s.resolveKey(ctx, in.PublicID)
	if err != nil {
		return "", media.Upstream("destroy", err)
	}
	if key == "" {
		return "not found", nil
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return "", media.Upstream("destroy", fmt.Errorf("delete %s: %w", key, err))
	}
	return "ok", nil
}

// resolveKey finds the object key for publicID, or "" when none exists.
func (s *S3) resolveKey(ctx context.Context, publicID string) (string, error) {
	publicID = strings.TrimLeft(publicID, "/")
	if publicID == "" {
		return "", errors.New("empty public id")
	}

	listed, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(publicID),
		MaxKeys: aws.Int32(16),
	})
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", publicID, err)
	}
	for _, obj := range listed.Contents {
		key := aws.ToString(obj.Key)
		if strings.TrimSuffix(key, path.Ext(key)) == publicID {
			return key, nil
		}
	}
	return "", nil
}

func (s *S3) objectURL(key string) string {
	if s.baseURL == "" {
		return fmt.Sprintf("s3://%s/%s", s.bucket, key)
	}
	return fmt.Sprintf("%s/%s", s.baseURL, key)
}

type s3DescriptorContext struct {
	Custom map[string]string `json:"custom"`
}

type s3Descriptor struct {
	PublicID     string              `json:"public_id"`
	Key          string              `json:"key"`
	Bucket       string              `json:"bucket"`
	ResourceType string              `json:"resource_type"`
	Format       string              `json:"format"`
	Bytes        int64               `json:"bytes"`
	CreatedAt    time.Time           `json:"created_at"`
	SecureURL    string              `json:"secure_url"`
	Tags         []string            `json:"tags"`
	Context      s3DescriptorContext `json:"context"`
}

// encodeObjectMetadata stores context in the pipe wire format, query-escaped
// because S3 metadata travels as ASCII headers.
func encodeObjectMetadata(ctx map[string]string, tags []string) map[string]string {
	meta := map[string]string{
		metaContext: url.QueryEscape(media.EncodeContext(ctx)),
	}
	if len(tags) > 0 {
		escaped := make([]string, 0, len(tags))
		for _, t := range tags {
			escaped = append(escaped, url.QueryEscape(t))
		}
		meta[metaTags] = strings.Join(escaped, ",")
	}
	return meta
}

func decodeObjectMetadata(meta map[string]string) (map[string]string, []string) {
	var rawContext, rawTags string
	for k, v := range meta {
		switch strings.ToLower(k) {
		case metaContext:
			rawContext = v
		case metaTags:
			rawTags = v
		}
	}

	wire, err := url.QueryUnescape(rawContext)
	if err != nil {
		wire = rawContext
	}
	ctx := media.ParseContext(wire)

	var tags []string
	for _, t := range strings.Split(rawTags, ",") {
		if t == "" {
			continue
		}
		if unescaped, err := url.QueryUnescape(t); err == nil {
			t = unescaped
		}
		tags = append(tags, t)
	}
	return ctx, tags
}

func joinKey(parts ...string) string {
	all := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			all = append(all, p)
		}
	}
	return strings.Join(all, "/")
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
