// Package storage puts and deletes public objects (product images, category
// images, profile pictures, banners) in an S3 compatible bucket, or on local
// disk when no bucket is configured.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImageSize caps uploaded images.
const MaxImageSize = 10 << 20

var (
	ErrEmptyFile   = errors.New("file is empty")
	ErrTooLarge    = errors.New("file exceeds 10MB")
	ErrNotAnImage  = errors.New("file is not a supported image")
	imageMIMETypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
)

// ObjectStore is implemented by the S3 client and the disk fallback.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Config holds the S3 connection settings.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string
}

// s3API is the part of the S3 client used here, narrowed for tests.
type s3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Client stores objects in S3.
type Client struct {
	api       s3API
	bucket    string
	publicURL string
}

func New(cfg Config) *Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	return newClient(s3.New(opts), cfg.Bucket, publicURL)
}

func newClient(api s3API, bucket, publicURL string) *Client {
	return &Client{api: api, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

func (c *Client) Put(ctx context.Context, key string, data []byte) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mimetype.Detect(data).String()),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (c *Client) URL(key string) string {
	if key == "" {
		return ""
	}
	return c.publicURL + "/" + key
}

// Disk stores objects under a local directory served at baseURL.
type Disk struct {
	root    string
	baseURL string
}

func NewDisk(root, baseURL string) *Disk {
	return &Disk{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (d *Disk) path(key string) string {
	return filepath.Join(d.root, filepath.FromSlash(path.Clean("/"+key)))
}

func (d *Disk) Put(_ context.Context, key string, data []byte) error {
	p := d.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (d *Disk) Delete(_ context.Context, key string) error {
	if err := os.Remove(d.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (d *Disk) URL(key string) string {
	if key == "" {
		return ""
	}
	return d.baseURL + "/" + key
}

// CheckImage validates an upload and returns its canonical extension.
func CheckImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if len(data) > MaxImageSize {
		return "", ErrTooLarge
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), imageMIMETypes...) {
		return "", ErrNotAnImage
	}
	return mt.Extension(), nil
}

// ProductImageKey returns products/<slug>/<uuid><ext>.
func ProductImageKey(productSlug, ext string) string {
	return fmt.Sprintf("products/%s/%s%s", productSlug, uuid.New().String(), ext)
}

// CategoryImageKey returns categories/<slug><ext>.
func CategoryImageKey(categorySlug, ext string) string {
	return fmt.Sprintf("categories/%s%s", categorySlug, ext)
}

// ProfilePictureKey returns profile_pictures/<userID>/<uuid><ext>.
func ProfilePictureKey(userID int64, ext string) string {
	return fmt.Sprintf("profile_pictures/%d/%s%s", userID, uuid.New().String(), ext)
}

// BannerKey returns promotion_banners/<uuid><ext>.
func BannerKey(ext string) string {
	return fmt.Sprintf("promotion_banners/%s%s", uuid.New().String(), ext)
}
