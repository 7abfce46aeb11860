// Package exporter writes metric query results into compressed, optionally
// encrypted archives on disk or in S3.
package exporter

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"filippo.io/age"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"agentdash/pkg/platform"
)

const (
	manifestSuffix    = ".manifest.yaml"
	defaultPresignTTL = time.Hour
)

// Source runs metric queries.
type Source interface {
	QueryMetrics(ctx context.Context, q platform.MetricQuery) ([]platform.Metric, error)
}

// Uploader stores archives in object storage.
type Uploader interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, sha256 string) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// Config configures Export. At least one of Output and Bucket must be set.
type Config struct {
	Source     Source
	Query      platform.MetricQuery
	Recipients []string

	// Output is the local archive path. The manifest is written next to it.
	Output string

	Bucket     string
	Key        string
	Uploader   Uploader
	PresignTTL time.Duration

	Now    func() time.Time
	Stdout io.Writer
}

// Result describes a finished export.
type Result struct {
	Manifest     Manifest
	Path         string
	ManifestPath string
	URL          string
}

// Export queries metrics and writes them as JSON lines compressed with zstd,
// age-encrypted when recipients are given.
func Export(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Source == nil {
		return nil, errors.New("metric source is required")
	}
	if cfg.Output == "" && cfg.Bucket == "" {
		return nil, errors.New("output path or bucket is required")
	}
	if cfg.Bucket != "" && cfg.Uploader == nil {
		return nil, errors.New("s3 client is required for bucket uploads")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Stdout == nil {
		cfg.Stdout = io.Discard
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = defaultPresignTTL
	}

	recipients, keys, err := parseRecipients(cfg.Recipients)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metrics, err := cfg.Source.QueryMetrics(ctx, cfg.Query)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}

	var archive bytes.Buffer
	hash := sha256.New()
	if err := writeArchive(io.MultiWriter(&archive, hash), metrics, recipients); err != nil {
		return nil, err
	}

	manifest := Manifest{
		Version:     ManifestVersion,
		CreatedAt:   cfg.Now().UTC().Truncate(time.Second),
		Query:       newManifestQuery(cfg.Query),
		Count:       len(metrics),
		Size:        int64(archive.Len()),
		SHA256:      hex.EncodeToString(hash.Sum(nil)),
		Compression: "zstd",
		Encrypted:   len(recipients) > 0,
		Recipients:  keys,
	}

	res := &Result{}
	if cfg.Bucket != "" {
		key := cfg.Key
		if key == "" {
			key = defaultKey(manifest.Encrypted)
		}
		manifest.Object = fmt.Sprintf("s3://%s/%s", cfg.Bucket, key)

		if err := cfg.Uploader.PutObject(ctx, cfg.Bucket, key, bytes.NewReader(archive.Bytes()), manifest.Size, manifest.SHA256); err != nil {
			return nil, fmt.Errorf("upload %q: %w", key, err)
		}
		manifestBytes, err := yaml.Marshal(manifest)
		if err != nil {
			return nil, fmt.Errorf("marshal manifest: %w", err)
		}
		sum := sha256.Sum256(manifestBytes)
		if err := cfg.Uploader.PutObject(ctx, cfg.Bucket, key+manifestSuffix, bytes.NewReader(manifestBytes), int64(len(manifestBytes)), hex.EncodeToString(sum[:])); err != nil {
			return nil, fmt.Errorf("upload manifest: %w", err)
		}
		url, err := cfg.Uploader.PresignGet(ctx, cfg.Bucket, key, cfg.PresignTTL)
		if err != nil {
			return nil, fmt.Errorf("presign %q: %w", key, err)
		}
		res.URL = url
		fmt.Fprintf(cfg.Stdout, "uploaded %s (%d metrics, %d bytes)\n", manifest.Object, manifest.Count, manifest.Size)
	}

	if cfg.Output != "" {
		manifestBytes, err := yaml.Marshal(manifest)
		if err != nil {
			return nil, fmt.Errorf("marshal manifest: %w", err)
		}
		if err := writeFile(cfg.Output, archive.Bytes()); err != nil {
			return nil, err
		}
		res.Path = cfg.Output
		res.ManifestPath = cfg.Output + manifestSuffix
		if err := writeFile(res.ManifestPath, manifestBytes); err != nil {
			return nil, err
		}
		fmt.Fprintf(cfg.Stdout, "wrote export %s (%d metrics)\n", cfg.Output, manifest.Count)
	}

	res.Manifest = manifest
	return res, nil
}

func writeArchive(dst io.Writer, metrics []platform.Metric, recipients []age.Recipient) error {
	var (
		sink      = dst
		encrypted io.WriteCloser
		err       error
	)
	if len(recipients) > 0 {
		encrypted, err = age.Encrypt(dst, recipients...)
		if err != nil {
			return fmt.Errorf("age encrypt: %w", err)
		}
		sink = encrypted
	}

	encoder, err := zstd.NewWriter(sink)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}

	enc := json.NewEncoder(encoder)
	for _, m := range metrics {
		if err := enc.Encode(m); err != nil {
			encoder.Close()
			return fmt.Errorf("encode metric: %w", err)
		}
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("close zstd writer: %w", err)
	}
	if encrypted != nil {
		if err := encrypted.Close(); err != nil {
			return fmt.Errorf("close age writer: %w", err)
		}
	}
	return nil
}

// Read decodes an archive written by Export. Identities are required for
// encrypted archives.
func Read(r io.Reader, identities ...age.Identity) ([]platform.Metric, error) {
	src := r
	if len(identities) > 0 {
		decrypted, err := age.Decrypt(r, identities...)
		if err != nil {
			return nil, fmt.Errorf("age decrypt: %w", err)
		}
		src = decrypted
	}

	decoder, err := zstd.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer decoder.Close()

	metrics := []platform.Metric{}
	scanner := bufio.NewScanner(decoder)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var m platform.Metric
		if err := json.Unmarshal(line, &m); err != nil {
			return nil, fmt.Errorf("decode metric %d: %w", len(metrics)+1, err)
		}
		metrics = append(metrics, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return metrics, nil
}

// VerifyFile checks the archive at path against the size and digest in its manifest.
func VerifyFile(path string, m Manifest) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer file.Close()

	hash := sha256.New()
	size, err := io.Copy(hash, file)
	if err != nil {
		return fmt.Errorf("hash %q: %w", path, err)
	}
	if size != m.Size {
		return fmt.Errorf("size mismatch for %q: expected %d got %d", path, m.Size, size)
	}
	if computed := hex.EncodeToString(hash.Sum(nil)); !strings.EqualFold(computed, m.SHA256) {
		return fmt.Errorf("sha256 mismatch for %q", path)
	}
	return nil
}

// ReadManifest loads the manifest written next to an archive.
func ReadManifest(archivePath string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(archivePath + manifestSuffix)
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("unmarshal manifest: %w", err)
	}
	if m.Version != ManifestVersion {
		return m, fmt.Errorf("unsupported manifest version %q", m.Version)
	}
	return m, nil
}

// parseRecipients skips blank entries and returns the parsed recipients
// along with their trimmed keys.
func parseRecipients(raw []string) ([]age.Recipient, []string, error) {
	var (
		recipients []age.Recipient
		keys       []string
	)
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		recipient, err := age.ParseX25519Recipient(r)
		if err != nil {
			return nil, nil, fmt.Errorf("parse recipient %q: %w", r, err)
		}
		recipients = append(recipients, recipient)
		keys = append(keys, r)
	}
	return recipients, keys, nil
}

func defaultKey(encrypted bool) string {
	key := fmt.Sprintf("exports/metrics-%s.jsonl.zst", uuid.NewString())
	if encrypted {
		key += ".age"
	}
	return key
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}
