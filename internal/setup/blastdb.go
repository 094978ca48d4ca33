package setup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/prolink-bio/prolink/internal/ctxlog"
)

// DefaultMirror is the NCBI BLAST database mirror.
const DefaultMirror = "https://ftp.ncbi.nlm.nih.gov/blast/db"

// DBDownloader fetches preformatted BLAST database volumes.
type DBDownloader struct {
	Client *http.Client

	// Mirror is the base URL volumes are fetched from.
	Mirror string

	// Dir is the local database directory, the eventual $BLASTDB.
	Dir string
}

// Download fetches every numbered volume of the named database
// ("<name>.NN.tar.gz") until the next volume is absent, verifying each
// against its .md5 companion and extracting it into Dir.
func (d *DBDownloader) Download(ctx context.Context, name string) error {
	logger := ctxlog.FromContext(ctx)
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create database dir: %w", err)
	}

	for volume := 0; ; volume++ {
		archive := fmt.Sprintf("%s.%02d.tar.gz", name, volume)
		url := d.Mirror + "/" + archive

		ok, err := d.fetchVolume(ctx, url, archive)
		if err != nil {
			return fmt.Errorf("volume %s: %w", archive, err)
		}
		if !ok {
			if volume == 0 {
				return fmt.Errorf("database %s has no volumes at %s", name, d.Mirror)
			}
			logger.Info("BLAST database downloaded.", "database", name, "volumes", volume)
			return nil
		}
		logger.Info("Fetched database volume.", "volume", archive)
	}
}

// fetchVolume downloads, verifies, and extracts one volume. The boolean is
// false when the volume does not exist on the mirror.
func (d *DBDownloader) fetchVolume(ctx context.Context, url, archive string) (bool, error) {
	resp, err := d.get(ctx, url)
	if err != nil {
		return false, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return false, fmt.Errorf("unexpected status %s", resp.Status)
	}

	local := filepath.Join(d.Dir, archive)
	sum, err := saveWithChecksum(local, resp.Body)
	resp.Body.Close()
	if err != nil {
		return false, err
	}
	defer os.Remove(local)

	if err := d.verifyChecksum(ctx, url+".md5", sum); err != nil {
		return false, err
	}

	f, err := os.Open(local)
	if err != nil {
		return false, err
	}
	defer f.Close()
	if err := extractAll(f, d.Dir); err != nil {
		return false, fmt.Errorf("failed to extract: %w", err)
	}
	return true, nil
}

func (d *DBDownloader) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return d.Client.Do(req)
}

// verifyChecksum compares the downloaded volume's md5 with the mirror's
// .md5 companion file. A missing companion is tolerated.
func (d *DBDownloader) verifyChecksum(ctx context.Context, url, sum string) error {
	resp, err := d.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("checksum fetch failed with status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return err
	}
	want, _, _ := strings.Cut(strings.TrimSpace(string(body)), " ")
	if want != sum {
		return fmt.Errorf("checksum mismatch: mirror says %s, downloaded %s", want, sum)
	}
	return nil
}

// saveWithChecksum streams r into path while accumulating its md5.
func saveWithChecksum(path string, r io.Reader) (string, error) {
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	h := md5.New()
	if _, err := io.Copy(io.MultiWriter(f, h), r); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// extractAll unpacks every regular file of a gzip-compressed tarball into
// dir, flattened. Database archives are flat already.
func extractAll(r io.Reader, dir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		dest := filepath.Join(dir, filepath.Base(hdr.Name))
		f, err := os.Create(dest)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
}
