package kronos

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/kronos/pkg/test"
)

func firmwareServer(t *testing.T, status int) (string, *atomic.Int64) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(firmwareContent))
	}))
	t.Cleanup(server.Close)
	return server.URL, &requests
}

func TestFetchFirmwareOnce(t *testing.T) {
	requireT := require.New(t)
	ctx := test.Context(t)

	url, requests := firmwareServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "ovmf", "ovmf-code-x86_64.fd")

	for range 2 {
		requireT.NoError(fetchFirmware(ctx, FirmwareConfig{URL: url}, path))
	}
	requireT.EqualValues(1, requests.Load())

	content, err := os.ReadFile(path)
	requireT.NoError(err)
	requireT.Equal(firmwareContent, string(content))
}

func TestFetchFirmwareChecksum(t *testing.T) {
	requireT := require.New(t)
	ctx := test.Context(t)

	url, _ := firmwareServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "firmware.fd")

	sum := sha256.Sum256([]byte(firmwareContent))
	requireT.NoError(fetchFirmware(ctx, FirmwareConfig{
		URL:  url,
		Hash: "sha256:" + hex.EncodeToString(sum[:]),
	}, path))
	requireT.FileExists(path)
}

func TestFetchFirmwareChecksumMismatch(t *testing.T) {
	requireT := require.New(t)
	ctx := test.Context(t)

	url, _ := firmwareServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "firmware.fd")

	requireT.Error(fetchFirmware(ctx, FirmwareConfig{
		URL:  url,
		Hash: "sha256:0000000000000000000000000000000000000000000000000000000000000000",
	}, path))
	requireT.NoFileExists(path)
	requireT.NoFileExists(path + ".tmp")
}

func TestFetchFirmwareUnsupportedChecksum(t *testing.T) {
	requireT := require.New(t)
	ctx := test.Context(t)

	url, requests := firmwareServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "firmware.fd")

	requireT.Error(fetchFirmware(ctx, FirmwareConfig{URL: url, Hash: "md5:abc"}, path))
	requireT.EqualValues(0, requests.Load())
}

func TestFetchFirmwareHTTPError(t *testing.T) {
	requireT := require.New(t)
	ctx := test.Context(t)

	url, _ := firmwareServer(t, http.StatusNotFound)
	path := filepath.Join(t.TempDir(), "firmware.fd")

	requireT.Error(fetchFirmware(ctx, FirmwareConfig{URL: url}, path))
	requireT.NoFileExists(path)
}

func TestFetchFirmwareCached(t *testing.T) {
	requireT := require.New(t)
	ctx := test.Context(t)

	url, requests := firmwareServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "firmware.fd")
	requireT.NoError(os.WriteFile(path, []byte("cached"), 0o600))

	requireT.NoError(fetchFirmware(ctx, FirmwareConfig{URL: url}, path))
	requireT.EqualValues(0, requests.Load())

	content, err := os.ReadFile(path)
	requireT.NoError(err)
	requireT.Equal("cached", string(content))
}

func TestFetchFirmwareTruncated(t *testing.T) {
	requireT := require.New(t)
	ctx := test.Context(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1024")
		_, _ = w.Write([]byte(firmwareContent))
	}))
	t.Cleanup(server.Close)

	path := filepath.Join(t.TempDir(), "firmware.fd")
	requireT.Error(fetchFirmware(ctx, FirmwareConfig{URL: server.URL}, path))
	requireT.NoFileExists(path)
	requireT.NoFileExists(path + ".tmp")
}
