package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
)

// RsyncMirror mirrors the export directory with `rsync -a --delete`.
type RsyncMirror struct {
	Target string
	Bin    string
}

func (r RsyncMirror) Sync(ctx context.Context, dir string) error {
	bin := r.Bin
	if bin == "" {
		bin = "rsync"
	}
	// Trailing slash: copy the directory contents, not the directory itself.
	cmd := exec.CommandContext(ctx, bin, "-a", "--delete", strings.TrimSuffix(dir, "/")+"/", r.Target)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	slog.Debug("Mirroring export directory", logfields.Path(dir), logfields.URL(r.Target))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("rsync to %s: %w: %s", r.Target, err, strings.TrimSpace(out.String()))
	}
	return nil
}

type objectUploader interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Mirror uploads every file of the export directory to an S3-compatible bucket.
type S3Mirror struct {
	client objectUploader
	bucket string
	prefix string

	ensureOnce sync.Once
	ensureErr  error
}

// S3Options configures NewS3Mirror.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// NewS3Mirror creates a mirror for mirrorURL (s3://bucket/prefix).
func NewS3Mirror(mirrorURL string, opts S3Options) (*S3Mirror, error) {
	bucket, prefix, err := ParseS3URL(mirrorURL)
	if err != nil {
		return nil, err
	}
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	mc, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return newS3Mirror(mc, bucket, prefix), nil
}

func newS3Mirror(client objectUploader, bucket, prefix string) *S3Mirror {
	return &S3Mirror{client: client, bucket: bucket, prefix: prefix}
}

// ParseS3URL splits s3://bucket/some/prefix into bucket and object prefix.
func ParseS3URL(raw string) (bucket, prefix string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid mirror URL: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid mirror URL %q: expected s3://bucket/prefix", raw)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}

func (s *S3Mirror) ensureBucket(ctx context.Context) error {
	s.ensureOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.ensureErr = fmt.Errorf("check bucket: %w", err)
			return
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
				s.ensureErr = fmt.Errorf("create bucket: %w", err)
				return
			}
			slog.Info("Created mirror bucket", slog.String("bucket", s.bucket))
		}
	})
	return s.ensureErr
}

func (s *S3Mirror) Sync(ctx context.Context, dir string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	names, err := artifactNames(dir)
	if err != nil {
		return err
	}
	names = append(names, indexMarkdown, indexHTML)
	for _, n := range names {
		p := filepath.Join(dir, n)
		if !fileExists(p) {
			continue
		}
		key := n
		if s.prefix != "" {
			key = path.Join(s.prefix, n)
		}
		opts := minio.PutObjectOptions{ContentType: contentType(n)}
		if _, err := s.client.FPutObject(ctx, s.bucket, key, p, opts); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
	}
	slog.Debug("Mirrored export directory", logfields.Path(dir), slog.String("bucket", s.bucket), slog.Int("objects", len(names)))
	return nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
