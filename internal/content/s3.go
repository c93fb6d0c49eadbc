package content

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/keithlinneman/staticrouter/internal/log"
	"github.com/keithlinneman/staticrouter/internal/markdown"
	"github.com/keithlinneman/staticrouter/internal/page"
	"github.com/keithlinneman/staticrouter/internal/pathutil"
	"github.com/keithlinneman/staticrouter/internal/xerrors"
)

// S3API is the part of *s3.Client the loader uses.
type S3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// maxObjectBytes caps a single page document
const maxObjectBytes = 4 << 20

// S3Loader loads *.md objects stored under s3://bucket/prefix with the same
// layout a StaticLoader expects on disk.
type S3Loader struct {
	client   S3API
	bucket   string
	prefix   string
	renderer markdown.Renderer
	opts     *markdown.Options
	logger   log.Logger
}

func NewS3Loader(client S3API, bucket, prefix string, opts ...Option) (*S3Loader, error) {
	if client == nil {
		return nil, xerrors.New("s3 client is required")
	}
	if bucket == "" {
		return nil, xerrors.New("s3 bucket is required")
	}
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	c := newLoaderConfig(opts)
	return &S3Loader{
		client:   client,
		bucket:   bucket,
		prefix:   prefix,
		renderer: c.renderer,
		opts:     c.opts,
		logger:   c.logger,
	}, nil
}

// Load lists the prefix, then fetches and renders each document in key order.
func (l *S3Loader) Load(ctx context.Context) ([]*page.Page, error) {
	start := time.Now()

	keys, err := l.listKeys(ctx)
	if err != nil {
		return nil, err
	}

	pages := make([]*page.Page, 0, len(keys))
	for _, key := range keys {
		rel := strings.TrimPrefix(key, l.prefix)

		raw, err := l.fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		p, err := page.FromMarkdown(raw, PathFor(rel), l.renderer, l.opts)
		if err != nil {
			return nil, xerrors.Wrapf(err, "load s3://%s/%s", l.bucket, key)
		}
		l.logger.Debug(ctx, "loaded page", "key", key, "path", p.Path)
		pages = append(pages, p)
	}

	l.logger.Info(ctx, "loaded content from s3",
		"bucket", l.bucket,
		"prefix", l.prefix,
		"pages", len(pages),
		"duration", time.Since(start).String(),
	)
	return pages, nil
}

func (l *S3Loader) listKeys(ctx context.Context) ([]string, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(l.bucket)}
	if l.prefix != "" {
		in.Prefix = aws.String(l.prefix)
	}

	var keys []string
	pager := s3.NewListObjectsV2Paginator(l.client, in)
	for pager.HasMorePages() {
		out, err := pager.NextPage(ctx)
		if err != nil {
			return nil, xerrors.Wrapf(err, "list s3://%s/%s", l.bucket, l.prefix)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, MarkdownExt) {
				continue
			}
			if pathutil.HasDotSegments(key) {
				l.logger.Warn(ctx, "skipping content key with dot segments", "key", key)
				continue
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (l *S3Loader) fetch(ctx context.Context, key string) (string, error) {
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get s3://%s/%s", l.bucket, key)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(io.LimitReader(out.Body, maxObjectBytes+1))
	if err != nil {
		return "", xerrors.Wrapf(err, "read s3://%s/%s", l.bucket, key)
	}
	if len(b) > maxObjectBytes {
		return "", xerrors.Newf("s3://%s/%s exceeds %d bytes", l.bucket, key, maxObjectBytes)
	}
	return string(b), nil
}
