package utils

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"remoteops/internal/models"
)

// CreateArchive zips the files named by relPaths (slash separated, relative
// to root) into outputPath. Entries are stored under the base name of root
// so that extracting the archive recreates the folder.
func CreateArchive(root string, relPaths []string, outputPath string) (*models.ArchiveInfo, error) {
	outFile, err := os.Create(outputPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create archive file")
	}
	defer outFile.Close()

	zipWriter := zip.NewWriter(outFile)
	defer zipWriter.Close()

	var originalSize int64
	createdAt := time.Now()
	base := filepath.Base(filepath.Clean(root))

	for _, rel := range relPaths {
		size, err := addToArchive(zipWriter, filepath.Join(root, filepath.FromSlash(rel)), path.Join(base, rel))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to add %s to archive", rel)
		}
		originalSize += size
	}

	if err := zipWriter.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to finalize archive")
	}

	fileInfo, err := outFile.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get archive info")
	}
	compressedSize := fileInfo.Size()

	compressionRatio := 0.0
	if originalSize > 0 {
		compressionRatio = float64(compressedSize) / float64(originalSize)
	}

	return &models.ArchiveInfo{
		ArchivePath:      outputPath,
		SourcePath:       root,
		FileCount:        len(relPaths),
		CompressedSize:   compressedSize,
		OriginalSize:     originalSize,
		CompressionRatio: compressionRatio,
		CreatedAt:        createdAt,
	}, nil
}

func addToArchive(zipWriter *zip.Writer, filePath, name string) (int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, errors.Errorf("%s is a directory", filePath)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return 0, err
	}
	header.Name = name
	header.Method = zip.Deflate

	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return 0, err
	}
	return io.Copy(writer, file)
}

// GenerateArchiveName builds "<base>_<timestamp><extension>" from the base
// name of p, dropping any extension p already has.
func GenerateArchiveName(p string, extension string) string {
	baseName := filepath.Base(filepath.Clean(p))
	if ext := filepath.Ext(baseName); ext != "" {
		baseName = strings.TrimSuffix(baseName, ext)
	}
	if baseName == "." || baseName == string(filepath.Separator) || baseName == "" {
		baseName = "archive"
	}
	return fmt.Sprintf("%s_%s%s", baseName, time.Now().Format("20060102_150405"), extension)
}

// ValidateDir returns an error unless p exists and is a directory.
func ValidateDir(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Errorf("path does not exist: %s", p)
		}
		return errors.Wrapf(err, "cannot access path %s", p)
	}
	if !info.IsDir() {
		return errors.Errorf("path is not a directory: %s", p)
	}
	return nil
}

func CleanupTempFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to cleanup temporary file %s", path)
	}
	return nil
}
