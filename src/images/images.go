/*
Package images talks to the S3-compatible bucket that holds article,
category and avatar images. Records store the public URL; the object key is
recovered from it when the owning record is deleted.
*/
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/newsdesk-cms/newsdesk/src/config"
	"github.com/newsdesk-cms/newsdesk/src/logging"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	_ "golang.org/x/image/webp"
)

const MaxUploadSize = 5 * 1024 * 1024

type Folder string

const (
	FolderArticles   Folder = "news"
	FolderCategories Folder = "categories"
	FolderAvatars    Folder = "avatars"
)

type UploadInput struct {
	Content  []byte
	Filename string
	Folder   Folder
}

type Image struct {
	Url    string `json:"url"`
	Ref    string `json:"ref"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Host is the image collaborator. Delete takes either a ref or the public URL
// that was handed out by Upload.
type Host interface {
	Upload(ctx context.Context, in UploadInput) (*Image, error)
	Delete(ctx context.Context, urlOrRef string) error
}

var contentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// Inspect checks that content is an image we accept and reads its header.
func Inspect(content []byte) (format string, width int, height int, err error) {
	if len(content) == 0 {
		return "", 0, 0, oops.InvalidInput("no image data was provided").WithCode("invalid_image")
	}
	if len(content) > MaxUploadSize {
		return "", 0, 0, oops.InvalidInput("images may be at most %d MB", MaxUploadSize/1024/1024).WithCode("image_too_large")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return "", 0, 0, oops.InvalidInput("only JPEG, PNG, GIF and WebP images are allowed").WithCode("invalid_image")
	}
	return format, cfg.Width, cfg.Height, nil
}

var reIllegalFilenameChars = regexp.MustCompile(`[^\w\-.]`)

func SanitizeFilename(filename string) string {
	if filename == "" {
		return "unnamed"
	}
	return reIllegalFilenameChars.ReplaceAllString(filename, "_")
}

func NewHost(cfg config.ImagesConfig) (Host, error) {
	if !cfg.Configured() {
		return Disabled{}, nil
	}
	return NewS3Host(cfg)
}

type S3Host struct {
	client    *s3.Client
	bucket    string
	publicUrl string
}

func NewS3Host(cfg config.ImagesConfig) (*S3Host, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.KeyID, cfg.Secret, ""),
		),
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithEndpointResolver(aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
			return aws.Endpoint{URL: cfg.Endpoint}, nil
		})))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, oops.New(err, "failed to load image host config")
	}

	publicUrl := cfg.PublicUrl
	if publicUrl == "" {
		publicUrl = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
	}

	return &S3Host{
		client: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = true
		}),
		bucket:    cfg.Bucket,
		publicUrl: publicUrl,
	}, nil
}

func (h *S3Host) Upload(ctx context.Context, in UploadInput) (*Image, error) {
	format, width, height, err := Inspect(in.Content)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s/%s", in.Folder, uuid.New().String(), SanitizeFilename(in.Filename))
	contentType := contentTypes[format]

	upload := func() error {
		_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      &h.bucket,
			Key:         &key,
			Body:        bytes.NewReader(in.Content),
			ACL:         types.ObjectCannedACLPublicRead,
			ContentType: &contentType,
		})
		return err
	}

	err = upload()
	if err != nil {
		var apiError smithy.APIError
		if errors.As(err, &apiError) && apiError.ErrorCode() == "NoSuchBucket" {
			_, err := h.client.CreateBucket(ctx, &s3.CreateBucketInput{
				Bucket: &h.bucket,
			})
			if err != nil {
				return nil, oops.New(err, "failed to create images bucket")
			}

			err = upload()
			if err != nil {
				return nil, oops.New(err, "failed to upload image")
			}
		} else {
			return nil, oops.New(err, "failed to upload image")
		}
	}

	return &Image{
		Url:    h.publicUrl + "/" + key,
		Ref:    key,
		Format: format,
		Width:  width,
		Height: height,
	}, nil
}

// RefFromURL turns a public URL back into an object key. Anything that does
// not start with the public URL is taken to be a key already.
func (h *S3Host) RefFromURL(urlOrRef string) string {
	return strings.TrimPrefix(urlOrRef, h.publicUrl+"/")
}

func (h *S3Host) Delete(ctx context.Context, urlOrRef string) error {
	key := h.RefFromURL(urlOrRef)
	if key == "" || strings.Contains(key, "://") {
		// Not one of ours, e.g. an image linked from elsewhere.
		return nil
	}
	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &h.bucket,
		Key:    &key,
	})
	if err != nil {
		return oops.New(err, "failed to delete image %s", key)
	}
	return nil
}

// Disabled is the host used when no bucket is configured. Deletes are skipped
// without complaint; uploads are refused.
type Disabled struct{}

func (Disabled) Upload(ctx context.Context, in UploadInput) (*Image, error) {
	if _, _, _, err := Inspect(in.Content); err != nil {
		return nil, err
	}
	return nil, oops.InvalidState("image uploads are not configured on this server").WithCode("images_unconfigured")
}

func (Disabled) Delete(ctx context.Context, urlOrRef string) error {
	return nil
}

/*
DeleteAll deletes each image, logging failures instead of returning them.
Used when the owning record is already gone and there is nobody left to
report the error to.
*/
func DeleteAll(ctx context.Context, host Host, urls []string) int {
	deleted := 0
	for _, u := range urls {
		if u == "" {
			continue
		}
		if err := host.Delete(ctx, u); err != nil {
			logging.ExtractLogger(ctx).Error().Err(err).Str("image", u).Msg("failed to delete image")
			continue
		}
		deleted++
	}
	return deleted
}
