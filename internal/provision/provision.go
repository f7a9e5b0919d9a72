// Package provision fetches model artifacts before the backend starts
// serving. Downloads are verified against a pinned SHA-256 manifest when one
// exists, archives are unpacked into the models directory, and everything is
// idempotent: artifacts already on disk are never fetched again.
package provision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrIntegrity indicates a downloaded artifact did not match its pinned digest.
	ErrIntegrity = errors.New("artifact digest mismatch")

	// ErrArtifactRequired is returned when no artifact name is given.
	ErrArtifactRequired = errors.New("artifact name required")
)

const defaultExt = ".tar.gz"

var knownExtensions = []string{
	".gguf", ".h5", ".pt", ".bin", ".json", ".txt", ".pkl", ".pickle",
	".safetensors", ".tar.gz", ".tar.bz2", ".tar.xz", ".zip",
}

var knownArchives = []string{".tar.gz", ".tar.bz2", ".tar.xz", ".zip"}

// Artifact pins one downloadable model file.
type Artifact struct {
	// File is the remote file name without extension.
	File string
	// Ext is the archive or file extension, empty for bare files.
	Ext string
	// SHA256 is the pinned digest of the downloaded file, hex-encoded.
	SHA256 string
}

// Config holds the provisioner's settings. No package-level state: every
// field travels with the instance.
type Config struct {
	// BaseURL is the artifact download root.
	BaseURL string
	// ModelsDir is where artifacts are stored and extracted.
	ModelsDir string
	// Client is the HTTP client used for downloads. Defaults to http.DefaultClient.
	Client *http.Client
	// Manifest pins digests and remote names per artifact. Optional.
	Manifest map[string]Artifact
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Provisioner downloads and unpacks model artifacts.
type Provisioner struct {
	cfg Config
}

func New(cfg Config) *Provisioner {
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Provisioner{cfg: cfg}
}

// Ensure makes the named artifact available under ModelsDir. It is a no-op
// when the artifact already exists on disk.
func (p *Provisioner) Ensure(ctx context.Context, nameOrPath string) error {
	if nameOrPath == "" {
		return ErrArtifactRequired
	}

	if p.exists(nameOrPath) {
		p.cfg.Logger.InfoContext(ctx, "model artifact present, skipping download", "artifact", nameOrPath)
		return nil
	}

	name := filepath.Base(nameOrPath)

	var remote string
	if pinned, ok := p.cfg.Manifest[name]; ok {
		remote = pinned.File + pinned.Ext
	} else if hasKnownExtension(name) {
		remote = name
	} else {
		// No recognized extension: assume the default archive format.
		remote = name + defaultExt
	}

	if err := os.MkdirAll(p.cfg.ModelsDir, 0o750); err != nil {
		return fmt.Errorf("creating models dir: %w", err)
	}

	target := filepath.Join(p.cfg.ModelsDir, remote)
	if err := p.download(ctx, remote, target); err != nil {
		return err
	}

	if pinned, ok := p.cfg.Manifest[name]; ok && pinned.SHA256 != "" {
		if err := verifyDigest(target, pinned.SHA256); err != nil {
			os.Remove(target)
			return err
		}
	}

	if isArchive(remote) {
		if err := extract(target, p.cfg.ModelsDir); err != nil {
			return fmt.Errorf("extracting %s: %w", remote, err)
		}
		if err := os.Remove(target); err != nil {
			return fmt.Errorf("removing archive: %w", err)
		}
	}

	p.cfg.Logger.InfoContext(ctx, "model artifact provisioned", "artifact", name)
	return nil
}

// exists reports whether the artifact is already on disk: as the given path,
// under the models dir, or under its manifest extraction name.
func (p *Provisioner) exists(nameOrPath string) bool {
	if _, err := os.Stat(nameOrPath); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(p.cfg.ModelsDir, nameOrPath)); err == nil {
		return true
	}
	if pinned, ok := p.cfg.Manifest[filepath.Base(nameOrPath)]; ok {
		if _, err := os.Stat(filepath.Join(p.cfg.ModelsDir, pinned.File)); err == nil {
			return true
		}
	}
	return false
}

func (p *Provisioner) download(ctx context.Context, remote, target string) error {
	url := strings.TrimSuffix(p.cfg.BaseURL, "/") + "/" + remote

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.cfg.Client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("downloading %s: status %d", url, resp.StatusCode)
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(target)
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return nil
}

func verifyDigest(path, want string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}

	got := hex.EncodeToString(h.Sum(nil))
	if got != want {
		return fmt.Errorf("%w: expected %s, got %s", ErrIntegrity, want, got)
	}
	return nil
}

func hasKnownExtension(name string) bool {
	for _, ext := range knownExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func isArchive(name string) bool {
	for _, ext := range knownArchives {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
