package initializers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"gopkg.in/yaml.v3"
)

// ImageStoreConfig describes the bucket listing images are uploaded to.
type ImageStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	MaxSize   int64
	FileTypes []string
	// PublicURL is the base images are served from; objects are addressed as PublicURL/key.
	PublicURL string
}

// Enabled reports whether an endpoint and bucket are configured.
func (c ImageStoreConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// uploadsConfigYAML defines optional YAML configuration for upload settings.
// If present, it overrides environment variables for upload-related fields.
type uploadsConfigYAML struct {
	MaxFileSize      int64    `yaml:"max_file_size"`
	AllowedFileTypes []string `yaml:"allowed_file_types"`
	PublicURL        string   `yaml:"public_url"`
}

// loadUploadsConfig tries to load YAML config from disk. If not found, returns nil with error.
func loadUploadsConfig() (*uploadsConfigYAML, error) {
	path := os.Getenv("UPLOADS_CONFIG_FILE")
	if strings.TrimSpace(path) == "" {
		path = "config/uploads.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg uploadsConfigYAML
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadImageStoreConfig reads MINIO_* and upload settings from the environment,
// then applies config/uploads.yaml when it exists.
func LoadImageStoreConfig() ImageStoreConfig {
	conf := ImageStoreConfig{
		Endpoint:  strings.TrimSpace(os.Getenv("MINIO_ENDPOINT")),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		Bucket:    strings.TrimSpace(os.Getenv("MINIO_BUCKET")),
		UseSSL:    parseBool(os.Getenv("MINIO_USE_SSL")),
		MaxSize:   parseInt64(os.Getenv("MAX_FILE_SIZE"), 10485760),
		FileTypes: parseFileTypes(os.Getenv("ALLOWED_FILE_TYPES")),
		PublicURL: strings.TrimSpace(os.Getenv("MINIO_PUBLIC_URL")),
	}

	if yamlCfg, err := loadUploadsConfig(); err == nil && yamlCfg != nil {
		if yamlCfg.MaxFileSize > 0 {
			conf.MaxSize = yamlCfg.MaxFileSize
		}
		if len(yamlCfg.AllowedFileTypes) > 0 {
			conf.FileTypes = yamlCfg.AllowedFileTypes
		}
		if yamlCfg.PublicURL != "" {
			conf.PublicURL = yamlCfg.PublicURL
		}
	}

	if conf.PublicURL == "" && conf.Enabled() {
		scheme := "http"
		if conf.UseSSL {
			scheme = "https"
		}
		conf.PublicURL = fmt.Sprintf("%s://%s/%s", scheme, conf.Endpoint, conf.Bucket)
	}
	conf.PublicURL = strings.TrimRight(conf.PublicURL, "/")
	return conf
}

// CheckAllowed validates an upload against the size limit and MIME allow-list.
func (c ImageStoreConfig) CheckAllowed(size int64, mime string) error {
	if size > c.MaxSize {
		return fmt.Errorf("file size exceeds the limit")
	}
	incoming := baseMIME(mime)
	for _, t := range c.FileTypes {
		if baseMIME(t) == incoming {
			return nil
		}
	}
	return fmt.Errorf("file type is not allowed")
}

// ImageStore uploads listing images to MinIO and hands back their public URLs.
type ImageStore struct {
	client *minio.Client
	conf   ImageStoreConfig
}

// publicReadPolicy lets anonymous clients GET objects in the bucket.
const publicReadPolicy = `{
  "Version": "2012-10-17",
  "Statement": [{
    "Effect": "Allow",
    "Principal": {"AWS": ["*"]},
    "Action": ["s3:GetObject"],
    "Resource": ["arn:aws:s3:::%s/*"]
  }]
}`

// NewImageStore connects to MinIO, creating the bucket with a public-read
// policy on first start.
func NewImageStore(ctx context.Context, conf ImageStoreConfig) (*ImageStore, error) {
	client, err := minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKey, conf.SecretKey, ""),
		Secure: conf.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	exists, err := client.BucketExists(ctx, conf.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, conf.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
		if err := client.SetBucketPolicy(ctx, conf.Bucket, fmt.Sprintf(publicReadPolicy, conf.Bucket)); err != nil {
			return nil, fmt.Errorf("set bucket policy: %w", err)
		}
	}

	slog.Info("image bucket ready", "bucket", conf.Bucket, "publicUrl", conf.PublicURL)
	return &ImageStore{client: client, conf: conf}, nil
}

func (s *ImageStore) MaxUploadSize() int64 {
	return s.conf.MaxSize
}

func (s *ImageStore) CheckAllowed(size int64, mime string) error {
	return s.conf.CheckAllowed(size, mime)
}

// Put stores the object under key and returns its public URL.
func (s *ImageStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.conf.Bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

func (s *ImageStore) PublicURL(key string) string {
	return s.conf.PublicURL + "/" + strings.TrimLeft(key, "/")
}

func parseBool(val string) bool {
	return strings.ToLower(val) == "true"
}

func parseInt64(val string, def int64) int64 {
	if val == "" {
		return def
	}
	v, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return def
	}
	return v
}

func parseFileTypes(val string) []string {
	if val == "" {
		return []string{"image/jpeg", "image/png", "image/webp"}
	}
	return strings.Split(val, ",")
}

func baseMIME(mime string) string {
	if mime == "" {
		return ""
	}
	parts := strings.Split(mime, ";")
	return strings.TrimSpace(parts[0])
}
