package infrastructure

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/ulikunitz/xz"
	"github.com/yourusername/misc-installer-go/internal/domain"
)

// Extractor unpacks a downloaded file into a target directory
type Extractor interface {
	// Extract unpacks source into targetDir. When root is set, only entries
	// below that archive directory are unpacked, relative to it.
	Extract(source, targetDir, root string) error
}

// TarExtractor extracts tar archives, optionally compressed
type TarExtractor struct {
	decompress func(io.Reader) (io.Reader, error)
}

// ZipExtractor extracts zip archives
type ZipExtractor struct{}

// CopyExtractor installs a file that is not an archive by copying it to Name
type CopyExtractor struct {
	Name string
}

var extractors = []struct {
	suffix    string
	extractor Extractor
}{
	{".tar.gz", &TarExtractor{decompress: gunzip}},
	{".tgz", &TarExtractor{decompress: gunzip}},
	{".tar.bz2", &TarExtractor{decompress: bunzip2}},
	{".tbz2", &TarExtractor{decompress: bunzip2}},
	{".tar.xz", &TarExtractor{decompress: unxz}},
	{".txz", &TarExtractor{decompress: unxz}},
	{".tar", &TarExtractor{}},
	{".zip", &ZipExtractor{}},
}

// Files installed as they are
var bareSuffixes = []string{".jar", ".bin", ".appimage"}

// NewExtractor returns the extractor for a download, chosen from its file name
// (use DownloadFileName of the download URL). Bare files are copied under that
// name. Any other suffix is an error wrapping domain.ErrUnsupportedArchive.
func NewExtractor(name string) (Extractor, error) {
	lower := strings.ToLower(name)
	for _, e := range extractors {
		if strings.HasSuffix(lower, e.suffix) {
			return e.extractor, nil
		}
	}
	for _, suffix := range bareSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return &CopyExtractor{Name: filepath.Base(name)}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedArchive, filepath.Base(name))
}

func gunzip(r io.Reader) (io.Reader, error) {
	return gzip.NewReader(r)
}

func bunzip2(r io.Reader) (io.Reader, error) {
	return bzip2.NewReader(r), nil
}

func unxz(r io.Reader) (io.Reader, error) {
	return xz.NewReader(r)
}

// Extract implements Extractor
func (e *TarExtractor) Extract(source, targetDir, root string) error {
	f, err := os.Open(source)
	if err != nil {
		return err
	}
	defer f.Close()

	var stream io.Reader = f
	if e.decompress != nil {
		stream, err = e.decompress(f)
		if err != nil {
			return fmt.Errorf("failed to decompress %s: %w", filepath.Base(source), err)
		}
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return err
	}

	tarReader := tar.NewReader(stream)
	found := root == ""
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		name, ok := stripRoot(header.Name, root)
		if !ok {
			continue
		}
		found = true
		if name == "" {
			continue
		}

		target, err := cleanJoin(targetDir, name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tarReader, os.FileMode(header.Mode)); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := writeSymlink(targetDir, name, header.Linkname); err != nil {
				return err
			}
		case tar.TypeXGlobalHeader, tar.TypeXHeader:
			continue
		default:
			return fmt.Errorf("unknown type: %b in %s", header.Typeflag, header.Name)
		}
	}

	if !found {
		return fmt.Errorf("archive has no %s directory", root)
	}
	return nil
}

// Extract implements Extractor
func (e *ZipExtractor) Extract(source, targetDir, root string) error {
	r, err := zip.OpenReader(source)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return err
	}

	found := root == ""
	for _, file := range r.File {
		name, ok := stripRoot(file.Name, root)
		if !ok {
			continue
		}
		found = true
		if name == "" {
			continue
		}

		target, err := cleanJoin(targetDir, name)
		if err != nil {
			return err
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return err
		}
		err = writeFile(target, rc, file.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}

	if !found {
		return fmt.Errorf("archive has no %s directory", root)
	}
	return nil
}

// Extract implements Extractor
func (e *CopyExtractor) Extract(source, targetDir, root string) error {
	if root != "" {
		return fmt.Errorf("%s is not an archive, cannot unpack %s from it", filepath.Base(source), root)
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return err
	}
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	name := e.Name
	if name == "" {
		name = filepath.Base(source)
	}
	return writeFile(filepath.Join(targetDir, name), in, 0644)
}

// stripRoot reports whether name lies under root and returns it relative to root
func stripRoot(name, root string) (string, bool) {
	name = strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "./")
	if root == "" {
		return strings.TrimSuffix(name, "/"), true
	}
	root = strings.Trim(root, "/")
	if name == root || name == root+"/" {
		return "", true
	}
	if rest, ok := strings.CutPrefix(name, root+"/"); ok {
		return strings.TrimSuffix(rest, "/"), true
	}
	return "", false
}

// cleanJoin joins an archive entry name to root, refusing names that escape it
func cleanJoin(root, dest string) (string, error) {
	// On Windows, this is a drive separator. On UNIX-like, this is the path list separator.
	if strings.Contains(dest, ":") {
		return "", errors.New("path contains ':', which is illegal")
	}

	dest = strings.ReplaceAll(dest, "\\", "/")

	for _, part := range strings.Split(dest, "/") {
		if part == ".." {
			return "", errors.New("path contains '..', which is illegal")
		}
	}

	if path.IsAbs(dest) {
		return "", errors.New("path is absolute, which is illegal")
	}

	return securejoin.SecureJoin(root, dest)
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if mode.Perm() == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// writeSymlink creates a relative symlink whose target stays inside root
func writeSymlink(root, name, linkname string) error {
	if path.IsAbs(linkname) {
		return fmt.Errorf("symlink %s points to absolute path %s, which is illegal", name, linkname)
	}
	resolved := path.Clean(path.Join(path.Dir(name), linkname))
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return fmt.Errorf("symlink %s escapes the install directory", name)
	}

	target, err := cleanJoin(root, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	os.Remove(target)
	return os.Symlink(linkname, target)
}
