package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/beautydesk/backoffice/pkg/audit"
)

// Config selects the bucket receiving audit exports.
type Config struct {
	Bucket         string `env:"ARCHIVE_S3_BUCKET"`
	Region         string `env:"ARCHIVE_S3_REGION" envDefault:"eu-west-3"`
	AccessKeyID    string `env:"ARCHIVE_S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"ARCHIVE_S3_SECRET_KEY"`
	Endpoint       string `env:"ARCHIVE_S3_ENDPOINT"`
	ForcePathStyle bool   `env:"ARCHIVE_S3_FORCE_PATH_STYLE"`
	Prefix         string `env:"ARCHIVE_S3_PREFIX" envDefault:"audit-exports/"`
}

// Enabled reports whether a bucket is configured.
func (c Config) Enabled() bool { return c.Bucket != "" }

// Client is the subset of *s3.Client used here.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Object describes a stored export.
type Object struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	Rows      int       `json:"rows,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Archiver uploads CSV exports of the audit log.
type Archiver struct {
	client Client
	bucket string
	prefix string
	reader *audit.Reader
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Archiver.
type Option func(*options)

type options struct {
	client      Client
	loadOptions []func(*config.LoadOptions) error
	now         func() time.Time
	logger      *slog.Logger
}

// WithClient uses a pre-built client instead of loading AWS config.
func WithClient(c Client) Option {
	return func(o *options) { o.client = c }
}

// WithLoadOption adds an AWS config load option.
func WithLoadOption(fn func(*config.LoadOptions) error) Option {
	return func(o *options) { o.loadOptions = append(o.loadOptions, fn) }
}

// WithClock overrides the time used to name exports.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the archiver logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates an archiver reading entries through reader.
func New(ctx context.Context, cfg Config, reader *audit.Reader, opts ...Option) (*Archiver, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidConfig
	}
	if reader == nil {
		panic("archive: audit reader cannot be nil")
	}

	o := &options{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		load := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			load = append(load, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")))
		}
		load = append(load, o.loadOptions...)

		awsCfg, err := config.LoadDefaultConfig(ctx, load...)
		if err != nil {
			return nil, errors.Join(ErrFailedToLoadConfig, err)
		}
		client = s3.NewFromConfig(awsCfg, func(so *s3.Options) {
			if cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			so.UsePathStyle = cfg.ForcePathStyle
		})
	}

	prefix := strings.TrimPrefix(cfg.Prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &Archiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
		reader: reader,
		now:    o.now,
		logger: o.logger,
	}, nil
}

// Export writes the entries matching criteria as CSV and uploads them.
func (a *Archiver) Export(ctx context.Context, criteria audit.Criteria) (Object, error) {
	var buf bytes.Buffer
	rows, err := a.reader.ExportCSV(ctx, &buf, criteria)
	if err != nil {
		return Object{}, errors.Join(ErrExportFailed, err)
	}

	now := a.now().UTC()
	obj := Object{
		Key:       a.key(now, criteria),
		Size:      int64(buf.Len()),
		Rows:      rows,
		CreatedAt: now,
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(a.bucket),
		Key:                aws.String(obj.Key),
		Body:               bytes.NewReader(buf.Bytes()),
		ContentLength:      aws.Int64(obj.Size),
		ContentType:        aws.String("text/csv; charset=utf-8"),
		ContentDisposition: aws.String(`attachment; filename="` + path.Base(obj.Key) + `"`),
		Metadata:           map[string]string{"rows": strconv.Itoa(rows)},
	})
	if err != nil {
		return Object{}, wrap(ErrUploadFailed, err)
	}

	a.logger.InfoContext(ctx, "audit export archived",
		slog.String("key", obj.Key),
		slog.Int("rows", rows),
		slog.Int64("bytes", obj.Size),
	)
	return obj, nil
}

// List returns up to limit archived exports, in key order.
func (a *Archiver) List(ctx context.Context, limit int) ([]Object, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(a.bucket),
		Prefix:  aws.String(a.prefix),
		MaxKeys: aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, wrap(ErrListFailed, err)
	}

	objects := make([]Object, 0, len(out.Contents))
	for _, o := range out.Contents {
		obj := Object{Key: aws.ToString(o.Key), Size: aws.ToInt64(o.Size)}
		if o.LastModified != nil {
			obj.CreatedAt = o.LastModified.UTC()
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// key is prefix/YYYY/MM/DD/audit-<scope>-<HHMMSS>.csv.
func (a *Archiver) key(now time.Time, c audit.Criteria) string {
	scope := "all"
	if c.OrganizationID != nil {
		scope = c.OrganizationID.String()
	}
	return fmt.Sprintf("%s%s/audit-%s-%s.csv", a.prefix, now.Format("2006/01/02"), scope, now.Format("150405"))
}

// wrap tags err with sentinel and the S3 error code when there is one.
func wrap(sentinel, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s: %w", sentinel, apiErr.ErrorCode(), err)
	}
	return errors.Join(sentinel, err)
}
