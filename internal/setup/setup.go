package setup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/prolink-bio/prolink/internal/ctxlog"
)

// Installer downloads and installs the managed tools.
type Installer struct {
	// Client is the HTTP client used for downloads.
	Client *http.Client

	// ToolsDir is the managed installation root; binaries land in its bin
	// subdirectory.
	ToolsDir string

	// Tools overrides the default tool table, mainly for tests.
	Tools []Tool
}

// NewInstaller returns an installer for the default tool table with a
// download client tuned for large artifacts.
func NewInstaller(toolsDir string) *Installer {
	return &Installer{
		Client: &http.Client{
			Timeout: 30 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 2,
			},
		},
		ToolsDir: toolsDir,
		Tools:    Tools,
	}
}

// BinDir is where installed executables live.
func (ins *Installer) BinDir() string {
	return filepath.Join(ins.ToolsDir, "bin")
}

// Install downloads and unpacks every managed tool that is not already
// present. Tools whose binaries all exist are skipped.
func (ins *Installer) Install(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if err := os.MkdirAll(ins.BinDir(), 0755); err != nil {
		return fmt.Errorf("failed to create tools dir: %w", err)
	}

	for _, tool := range ins.Tools {
		if ins.installed(tool) {
			logger.Debug("Tool already installed, skipping download.", "tool", tool.Name)
			continue
		}
		logger.Info("Installing tool.", "tool", tool.Name, "url", tool.URL)
		if err := ins.install(ctx, tool); err != nil {
			return fmt.Errorf("failed to install %s: %w", tool.Name, err)
		}
	}
	return nil
}

// installed reports whether every binary of the tool is already in BinDir.
func (ins *Installer) installed(tool Tool) bool {
	for _, bin := range tool.Binaries {
		if _, err := os.Stat(filepath.Join(ins.BinDir(), bin)); err != nil {
			return false
		}
	}
	return true
}

func (ins *Installer) install(ctx context.Context, tool Tool) error {
	body, err := ins.download(ctx, tool.URL)
	if err != nil {
		return err
	}
	defer body.Close()

	switch tool.Kind {
	case RawBinary:
		dest := filepath.Join(ins.BinDir(), tool.Binaries[0])
		if err := writeExecutable(dest, body); err != nil {
			return err
		}
	case TarGz:
		if err := ExtractBinaries(body, ins.BinDir(), tool.Binaries); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown archive kind %d", tool.Kind)
	}
	return nil
}

func (ins *Installer) download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := ins.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download of %s failed with status %s", url, resp.Status)
	}
	return resp.Body, nil
}

// ExtractBinaries streams a gzip-compressed tarball and installs the wanted
// executables into binDir, flattening whatever directory layout the archive
// uses. Unwanted archive members are skipped.
func ExtractBinaries(r io.Reader, binDir string, wanted []string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gz.Close()

	want := make(map[string]bool, len(wanted))
	for _, name := range wanted {
		want[name] = true
	}

	found := 0
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar stream: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		base := filepath.Base(hdr.Name)
		if !want[base] {
			continue
		}
		if err := writeExecutable(filepath.Join(binDir, base), tr); err != nil {
			return err
		}
		found++
	}
	if found < len(wanted) {
		return fmt.Errorf("archive is missing %d of the expected binaries %v", len(wanted)-found, wanted)
	}
	return nil
}

func writeExecutable(dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return f.Close()
}

// ApplyEnv prepends the managed bin directory to PATH and points BLASTDB at
// the database directory, for this process and its children.
func ApplyEnv(binDir, dbDir string) error {
	path := os.Getenv("PATH")
	if !strings.Contains(path, binDir) {
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+path); err != nil {
			return fmt.Errorf("failed to extend PATH: %w", err)
		}
	}
	if err := os.Setenv("BLASTDB", dbDir); err != nil {
		return fmt.Errorf("failed to set BLASTDB: %w", err)
	}
	return nil
}

// Verify checks that every required external binary resolves on PATH. It is
// the smoke test that the pipeline is actually invocable.
func Verify(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var missing []string
	for _, bin := range RequiredBinaries() {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required binaries not found on PATH: %s", strings.Join(missing, ", "))
	}
	logger.Debug("All required binaries resolved.", "count", len(RequiredBinaries()))
	return nil
}
