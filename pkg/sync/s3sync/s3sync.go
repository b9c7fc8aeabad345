// Package s3sync persists synchronized fields as objects in an S3 bucket.
//
// Snapshots are read in the background (stan.Deferred), so a store built
// over a Bucket starts with its initial values and adopts the stored ones
// once stan.Store.Settle or ApplyPending runs. Updates are queued and
// written by a background goroutine; several updates to one key that
// arrive while a write is in flight collapse into the latest value.
//
// Example usage:
//
//	client := s3.New(s3.Options{Region: "eu-west-1", Credentials: s3sync.EnvCredentials()})
//	bucket := s3sync.New(client, "my-bucket", s3sync.WithPrefix("state/"))
//	defer bucket.Close()
//
//	store, _ := stan.New(stan.Fields{
//		stan.Synchronized("settings", bucket.Field(Settings{})),
//	})
package s3sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vango-dev/stan/internal/codec"
	"github.com/vango-dev/stan/pkg/stan"
)

// ErrClosed is returned by Update after Close.
var ErrClosed = errors.New("s3sync: bucket closed")

// Client is the subset of *s3.Client a Bucket uses.
type Client interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ Client = (*s3.Client)(nil)

// Option configures a Bucket.
type Option func(*Bucket)

// WithPrefix sets the key prefix of the stored objects, e.g. "state/".
func WithPrefix(prefix string) Option {
	return func(b *Bucket) {
		b.prefix = prefix
	}
}

// WithFormat sets the object encoding. Defaults to JSON.
func WithFormat(f codec.Format) Option {
	return func(b *Bucket) {
		b.format = f
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Bucket) {
		b.logger = l
	}
}

// WithTimeout bounds each background write. Defaults to 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(b *Bucket) {
		b.timeout = d
	}
}

// WithErrorHandler registers fn to be called when a background write
// fails. Failures are logged either way.
func WithErrorHandler(fn func(key string, err error)) Option {
	return func(b *Bucket) {
		b.onError = fn
	}
}

// Bucket is an S3-backed field source.
type Bucket struct {
	client  Client
	bucket  string
	prefix  string
	format  codec.Format
	logger  *slog.Logger
	timeout time.Duration
	onError func(key string, err error)

	mu      sync.Mutex
	cond    *sync.Cond
	pending map[string]any
	order   []string
	closed  bool
	done    chan struct{}
}

// New returns a Bucket and starts its writer.
func New(client Client, bucket string, opts ...Option) *Bucket {
	b := &Bucket{
		client:  client,
		bucket:  bucket,
		format:  codec.JSON,
		timeout: 30 * time.Second,
		pending: make(map[string]any),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.cond = sync.NewCond(&b.mu)
	go b.run()
	return b
}

// objectKey maps a field key to its object key.
func (b *Bucket) objectKey(key string) string {
	return b.prefix + key + b.format.Ext()
}

// Read fetches and decodes key into a value of like's type. A missing
// object is reported as stan.ErrNoSnapshot.
func (b *Bucket) Read(ctx context.Context, key string, like any) (any, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("key %q: %w", key, stan.ErrNoSnapshot)
		}
		return nil, fmt.Errorf("s3 get %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %q: %w", key, err)
	}
	return codec.Decode(b.format, data, like)
}

// Write stores v under key synchronously.
func (b *Bucket) Write(ctx context.Context, key string, v any) error {
	data, err := codec.Marshal(b.format, v)
	if err != nil {
		return err
	}
	contentType := "application/json"
	if b.format == codec.YAML {
		contentType = "application/yaml"
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"stan-key":    key,
			"update-time": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %q: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys under the prefix.
func (b *Bucket) Keys(ctx context.Context) ([]string, error) {
	ext := b.format.Ext()
	var keys []string
	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), b.prefix)
			if name == "" || strings.Contains(name, "/") || !strings.HasSuffix(name, ext) {
				continue
			}
			keys = append(keys, strings.TrimSuffix(name, ext))
		}
	}
	return keys, nil
}

// Field returns a synchronizer storing a field under its name.
func (b *Bucket) Field(initial any) stan.Synchronizer {
	return &field{bucket: b, initial: initial}
}

// enqueue schedules a background write of v, replacing any queued value
// for key.
func (b *Bucket) enqueue(key string, v any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if _, queued := b.pending[key]; !queued {
		b.order = append(b.order, key)
	}
	b.pending[key] = v
	b.cond.Signal()
	return nil
}

// next blocks until a write is queued or the bucket is closed and drained.
func (b *Bucket) next() (string, any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.order) == 0 && !b.closed {
		b.cond.Wait()
	}
	if len(b.order) == 0 {
		return "", nil, false
	}
	key := b.order[0]
	b.order = b.order[1:]
	v := b.pending[key]
	delete(b.pending, key)
	return key, v, true
}

func (b *Bucket) run() {
	defer close(b.done)
	for {
		key, v, ok := b.next()
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		err := b.Write(ctx, key, v)
		cancel()
		if err != nil {
			b.logger.Warn("s3sync: background write failed", "key", key, "error", err)
			if b.onError != nil {
				b.onError(key, err)
			}
			continue
		}
		b.logger.Debug("s3sync: wrote field", "key", key, "bucket", b.bucket)
	}
}

// Close stops accepting updates and waits for the queued ones to be
// written.
func (b *Bucket) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.done
		return nil
	}
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
	<-b.done
	return nil
}

type field struct {
	bucket  *Bucket
	initial any
}

func (f *field) InitialValue() any {
	return f.initial
}

func (f *field) GetSnapshot(key string) (stan.Snapshot, error) {
	return stan.Deferred(func(ctx context.Context) (any, error) {
		return f.bucket.Read(ctx, key, f.initial)
	}), nil
}

func (f *field) Update(v any, key string) error {
	return f.bucket.enqueue(key, v)
}

// EnvCredentials returns a cached credentials provider reading
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.
func EnvCredentials() aws.CredentialsProvider {
	return aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
		if id == "" || secret == "" {
			return aws.Credentials{}, errors.New("s3sync: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
		}
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "EnvCredentials",
		}, nil
	}))
}
