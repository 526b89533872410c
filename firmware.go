package kronos

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/outofforest/logger"
)

const hashPrefix = "sha256:"

// fetchFirmware downloads firmware unless it is already cached.
func fetchFirmware(ctx context.Context, config FirmwareConfig, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.WithStack(err)
	}

	log := logger.Get(ctx)
	log.Info("==> Downloading firmware", zap.String("url", config.URL))

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.WithStack(err)
	}

	size, err := downloadFile(ctx, config.URL, path, config.Hash)
	if err != nil {
		return err
	}

	log.Info("Firmware downloaded", zap.String("path", path), zap.String("size", humanize.Bytes(uint64(size))))
	return nil
}

func downloadFile(ctx context.Context, url, path, checksum string) (retSize int64, retErr error) {
	var hasher hash.Hash
	var expected string
	if checksum != "" {
		if !strings.HasPrefix(checksum, hashPrefix) {
			return 0, errors.Errorf("unsupported checksum %q", checksum)
		}
		hasher = sha256.New()
		expected = strings.TrimPrefix(checksum, hashPrefix)
	}

	reader, expectedSize, err := streamFromURL(ctx, url)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	pathTmp := path + ".tmp"
	f, err := os.OpenFile(pathTmp, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer func() {
		_ = f.Close()
		if retErr != nil {
			_ = os.Remove(pathTmp)
		}
	}()

	var r io.Reader = reader
	if hasher != nil {
		r = io.TeeReader(reader, hasher)
	}
	size, err := io.Copy(f, r)
	if err != nil {
		return 0, errors.Wrapf(err, "downloading file %q failed", url)
	}
	if expectedSize >= 0 && size != expectedSize {
		return 0, errors.Errorf("download of %q truncated, expected %d bytes, got %d", url, expectedSize, size)
	}

	if hasher != nil {
		if actual := hex.EncodeToString(hasher.Sum(nil)); actual != expected {
			return 0, errors.Errorf("checksum mismatch for %q, expected: %q, got: %q", url, expected, actual)
		}
	}

	if err := f.Close(); err != nil {
		return 0, errors.WithStack(err)
	}
	return size, errors.WithStack(os.Rename(pathTmp, path))
}

// streamFromURL returns body of the response and its declared size, -1 if unknown.
func streamFromURL(ctx context.Context, url string) (retR io.ReadCloser, retSize int64, retErr error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	defer func() {
		if retErr != nil {
			_ = resp.Body.Close()
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, errors.Errorf("unexpected status code %d, url: %q", resp.StatusCode, url)
	}

	return resp.Body, resp.ContentLength, nil
}
