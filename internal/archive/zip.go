// Package archive turns a directory tree into a single zip stream.
package archive

import (
	"archive/zip"
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
)

const (
	// ContentType is the MIME type of produced artifacts.
	ContentType = "application/zip"
	// Extension is the file extension of produced artifacts, without the dot.
	Extension = "zip"
)

// ArtifactName returns the local file name for an archive of repoName.
func ArtifactName(repoName string, suffix int) string {
	return fmt.Sprintf("%s-%d.%s", repoName, suffix, Extension)
}

// Zip streams every entry below srcDir into w. Entry names are relative to
// srcDir, so the archive root holds the directory's contents rather than
// the directory itself. File data is deflated at maximum compression.
func Zip(ctx context.Context, srcDir string, w io.Writer) error {
	info, err := os.Stat(srcDir)
	if err != nil {
		return fmt.Errorf("stat source %s: %w", srcDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source %s is not a directory", srcDir)
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		return addEntry(zw, path, filepath.ToSlash(rel), fi)
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("archive %s: %w", srcDir, err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func addEntry(zw *zip.Writer, path, name string, fi fs.FileInfo) error {
	header, err := zip.FileInfoHeader(fi)
	if err != nil {
		return fmt.Errorf("header for %s: %w", name, err)
	}
	header.Name = name

	switch {
	case fi.IsDir():
		header.Name += "/"
		header.Method = zip.Store
		_, err := zw.CreateHeader(header)
		return err

	case fi.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}
		header.Method = zip.Store
		ew, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		_, err = io.WriteString(ew, target)
		return err

	case fi.Mode().IsRegular():
		header.Method = zip.Deflate
		ew, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(ew, f); err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
		return nil

	default:
		// Sockets, devices and pipes have no content worth keeping.
		return nil
	}
}

// WriteFile archives srcDir into a new file at dstPath and returns its size.
// dstPath must not exist; a partial file is removed on failure.
func WriteFile(ctx context.Context, srcDir, dstPath string) (int64, error) {
	f, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return 0, fmt.Errorf("create artifact: %w", err)
	}

	size, err := writeTo(ctx, srcDir, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close artifact: %w", closeErr)
	}
	if err != nil {
		os.Remove(dstPath)
		return 0, err
	}
	return size, nil
}

func writeTo(ctx context.Context, srcDir string, f *os.File) (int64, error) {
	bw := bufio.NewWriterSize(f, 1<<20)
	if err := Zip(ctx, srcDir, bw); err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush artifact: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat artifact: %w", err)
	}
	return info.Size(), nil
}
