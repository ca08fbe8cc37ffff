package main

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Backblaze/blazer/b2"
	"github.com/dsnet/compress/bzip2"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/ulikunitz/xz"
	xzReader "github.com/xi2/xz"
	"google.golang.org/api/option"
)

// bucketCache keeps one client per provider and one handle per bucket, so
// that a conversion may read from a bucket and write to another one.
type bucketCache struct {
	gcs        *storage.Client
	gcsBuckets map[string]*storage.BucketHandle

	b2        *b2.Client
	b2Buckets map[string]*b2.Bucket
}

var buckets = &bucketCache{
	gcsBuckets: map[string]*storage.BucketHandle{},
	b2Buckets:  map[string]*b2.Bucket{},
}

func (bc *bucketCache) gcsBucket(ctx context.Context, name string) (*storage.BucketHandle, error) {
	bucket, found := bc.gcsBuckets[name]
	if found {
		return bucket, nil
	}

	if bc.gcs == nil {
		serviceAcc := os.Getenv("GCS_SVC_ACC")
		if serviceAcc == "" {
			return nil, fmt.Errorf("gs://%s: GCS_SVC_ACC must point to a service account file", name)
		}
		client, err := storage.NewClient(ctx, option.WithCredentialsFile(serviceAcc))
		if err != nil {
			return nil, fmt.Errorf("gs://%s: %w", name, err)
		}
		bc.gcs = client
	}

	bucket = bc.gcs.Bucket(name)
	bc.gcsBuckets[name] = bucket
	return bucket, nil
}

func (bc *bucketCache) b2Bucket(ctx context.Context, name string) (*b2.Bucket, error) {
	bucket, found := bc.b2Buckets[name]
	if found {
		return bucket, nil
	}

	if bc.b2 == nil {
		keyID := os.Getenv("B2_KEY_ID")
		appKey := os.Getenv("B2_APP_KEY")
		if keyID == "" || appKey == "" {
			return nil, fmt.Errorf("b2://%s: B2_KEY_ID and B2_APP_KEY must be set", name)
		}
		client, err := b2.NewClient(ctx, keyID, appKey)
		if err != nil {
			return nil, fmt.Errorf("b2://%s: %w", name, err)
		}
		bc.b2 = client
	}

	bucket, err := bc.b2.Bucket(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("b2://%s: %w", name, err)
	}
	bc.b2Buckets[name] = bucket
	return bucket, nil
}

// checkLocation validates an export location before any data is produced,
// connecting to its bucket when remote.
func checkLocation(ctx context.Context, location string, write bool) error {
	if location == "" {
		return errors.New("missing export location")
	}
	if location == "-" {
		if !write {
			return errors.New("exports cannot be read from stdout")
		}
		return nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return err
	}

	switch u.Scheme {
	case "http", "https":
		if write {
			return fmt.Errorf("cannot upload exports to %s, use a gs:// or b2:// bucket", location)
		}
	case "gs":
		_, err = buckets.gcsBucket(ctx, u.Host)
	case "b2":
		_, err = buckets.b2Bucket(ctx, u.Host)
	case "":
		if write {
			dir := filepath.Dir(location)
			_, err = os.Stat(dir)
			if os.IsNotExist(err) {
				return fmt.Errorf("export directory %s does not exist", dir)
			}
			return err
		}
		_, err = os.Stat(location)
		if os.IsNotExist(err) {
			return fmt.Errorf("export file %s does not exist", location)
		}
	default:
		return fmt.Errorf("unsupported location %s, expected a path, gs://, b2:// or http(s)://", location)
	}

	return err
}

type chainWriter struct {
	io.Writer
	closers []io.Closer
}

// Close closes the compressors before the destination
func (cw *chainWriter) Close() error {
	var firstErr error
	for _, closer := range cw.closers {
		err := closer.Close()
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// putData opens the destination, compressing according to its extension.
func putData(ctx context.Context, target string) (io.WriteCloser, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	var writer io.WriteCloser
	switch u.Scheme {
	case "gs":
		bucket, err := buckets.gcsBucket(ctx, u.Host)
		if err != nil {
			return nil, err
		}
		writer = bucket.Object(strings.TrimPrefix(u.Path, "/")).NewWriter(ctx)
	case "b2":
		bucket, err := buckets.b2Bucket(ctx, u.Host)
		if err != nil {
			return nil, err
		}
		writer = bucket.Object(strings.TrimPrefix(u.Path, "/")).NewWriter(ctx)
	case "":
		if target == "-" {
			return &chainWriter{Writer: os.Stdout}, nil
		}
		file, err := os.Create(target)
		if err != nil {
			return nil, err
		}
		writer = file
	default:
		return nil, fmt.Errorf("unsupported destination %s", u.Scheme)
	}

	var compressor io.WriteCloser
	switch {
	case strings.HasSuffix(target, ".xz"):
		compressor, err = xz.NewWriter(writer)
	case strings.HasSuffix(target, ".bz2"):
		compressor, err = bzip2.NewWriter(writer, nil)
	case strings.HasSuffix(target, ".gz"):
		compressor = gzip.NewWriter(writer)
	default:
		return writer, nil
	}
	if err != nil {
		writer.Close()
		return nil, err
	}

	return &chainWriter{
		Writer:  compressor,
		closers: []io.Closer{compressor, writer},
	}, nil
}

type chainReader struct {
	io.Reader
	closers []io.Closer
}

func (cr *chainReader) Close() error {
	var firstErr error
	for _, closer := range cr.closers {
		err := closer.Close()
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// loadData opens a local, remote or bucket source, decompressing according
// to its extension.
func loadData(ctx context.Context, source string) (io.ReadCloser, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, err
	}

	var reader io.ReadCloser
	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := cleanhttp.DefaultClient().Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %s for %s", resp.Status, source)
		}
		reader = resp.Body
	case "gs":
		bucket, err := buckets.gcsBucket(ctx, u.Host)
		if err != nil {
			return nil, err
		}
		reader, err = bucket.Object(strings.TrimPrefix(u.Path, "/")).NewReader(ctx)
		if err != nil {
			return nil, err
		}
	case "b2":
		bucket, err := buckets.b2Bucket(ctx, u.Host)
		if err != nil {
			return nil, err
		}
		obj := bucket.Object(strings.TrimPrefix(u.Path, "/")).NewReader(ctx)
		obj.ConcurrentDownloads = 20

		reader = obj
	default:
		file, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		reader = file
	}

	switch {
	case strings.HasSuffix(source, ".xz"):
		xzr, err := xzReader.NewReader(reader, 0)
		if err != nil {
			reader.Close()
			return nil, err
		}
		return &chainReader{Reader: xzr, closers: []io.Closer{reader}}, nil
	case strings.HasSuffix(source, ".bz2"):
		bz2r, err := bzip2.NewReader(reader, nil)
		if err != nil {
			reader.Close()
			return nil, err
		}
		return &chainReader{Reader: bz2r, closers: []io.Closer{bz2r, reader}}, nil
	case strings.HasSuffix(source, ".gz"):
		gzr, err := gzip.NewReader(reader)
		if err != nil {
			reader.Close()
			return nil, err
		}
		return &chainReader{Reader: gzr, closers: []io.Closer{gzr, reader}}, nil
	}

	return reader, nil
}

// exportFormat strips the compression suffix from a file name extension,
// "items.csv.xz" is "csv".
func exportFormat(name string) string {
	base := filepath.Base(name)
	for _, ext := range []string{".xz", ".bz2", ".gz"} {
		base = strings.TrimSuffix(base, ext)
	}
	return strings.TrimPrefix(filepath.Ext(base), ".")
}
