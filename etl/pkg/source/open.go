package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Format string

const (
	FormatAuto Format = ""
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "", "auto", "csv" and "xlsx".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "xlsm":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported source format %q", s)
}

// DetectFormat picks the decoder from the file extension of a path or object
// key.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: cannot detect format of %q", ErrSourceUnavailable, name)
}

// ObjectGetter is the subset of the S3 client used to fetch datasets.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type OpenConfig struct {
	Logger *slog.Logger
	Format Format
	Sheet  string

	// S3 is required only for s3:// locations.
	S3 ObjectGetter
}

func (cfg *OpenConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Dataset is an opened Reader that owns its underlying stream.
type Dataset interface {
	Reader
	io.Closer
}

type csvDataset struct {
	*CSVReader
	body io.Closer
}

func (d *csvDataset) Close() error {
	return d.body.Close()
}

// Open resolves location (a filesystem path or s3://bucket/key), picks a
// decoder and reads the header. Every failure wraps ErrSourceUnavailable.
func Open(ctx context.Context, location string, cfg OpenConfig) (Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	format := cfg.Format
	if format == FormatAuto {
		var err error
		if format, err = DetectFormat(objectName(location)); err != nil {
			return nil, err
		}
	}

	body, err := openBody(ctx, location, cfg)
	if err != nil {
		return nil, err
	}
	cfg.Logger.Debug("source: opened dataset", "location", location, "format", format)

	switch format {
	case FormatCSV:
		r, err := NewCSVReader(body)
		if err != nil {
			body.Close()
			return nil, err
		}
		return &csvDataset{CSVReader: r, body: body}, nil
	case FormatXLSX:
		// excelize buffers the whole workbook, so the body can go right away.
		defer body.Close()
		return NewXLSXReader(body, cfg.Sheet)
	}
	body.Close()
	return nil, fmt.Errorf("%w: unsupported format %q", ErrSourceUnavailable, format)
}

func objectName(location string) string {
	if u, err := url.Parse(location); err == nil && u.Scheme == "s3" {
		return u.Path
	}
	return location
}

func openBody(ctx context.Context, location string, cfg OpenConfig) (io.ReadCloser, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme != "s3" {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		return f, nil
	}

	if cfg.S3 == nil {
		return nil, fmt.Errorf("%w: s3 client is required for %s", ErrSourceUnavailable, location)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, fmt.Errorf("%w: invalid s3 location %q", ErrSourceUnavailable, location)
	}
	out, err := cfg.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get s3://%s/%s: %w", ErrSourceUnavailable, u.Host, key, err)
	}
	return out.Body, nil
}
