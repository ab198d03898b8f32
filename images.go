package main

import (
	"context"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	_ "golang.org/x/image/webp"

	"cropdesk/internal/crop"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type FileInfo struct {
	Name        string            `json:"name"`
	IsDir       bool              `json:"is_dir"`
	SizeBytes   int64             `json:"size_bytes"`
	ModifiedAt  time.Time         `json:"modified_at"`
	URL         string            `json:"url"`
	Image       ImageInfo         `json:"image"`
	Diagnostics []crop.Diagnostic `json:"diagnostics"`
}

type Directory struct {
	Name  string     `json:"name"`
	Files []FileInfo `json:"files"`
}

func isImage(path string) bool {
	return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(path)))
}

// walkImages lists the images under rootPath, skipping the output directory.
// Dimensions are read from the image headers only.
func walkImages(ctx context.Context, rootPath, skipDir string, spec crop.OutputSpec) (Directory, error) {
	var files []FileInfo

	if err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir != "" && path == skipDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !isImage(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to get file info: %w", err)
		}
		relPath, err := filepath.Rel(rootPath, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		files = append(files, FileInfo{
			Name:       relPath,
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
		})
		return nil
	}); err != nil {
		return Directory{}, err
	}

	p := pool.New().WithContext(ctx).WithMaxGoroutines(runtime.NumCPU())
	for i := range files {
		p.Go(func(ctx context.Context) error {
			w, h, err := readImageDimensions(filepath.Join(rootPath, files[i].Name))
			if err != nil {
				log.Ctx(ctx).Error().Err(err).Str("filename", files[i].Name).Msg("cannot read image dimensions")
				return nil
			}
			files[i].Image = ImageInfo{Width: w, Height: h}
			files[i].Diagnostics = crop.Analyze(crop.Dimensions{Width: float64(w), Height: float64(h)}, spec)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return Directory{}, err
	}

	return Directory{
		Name:  filepath.Base(rootPath),
		Files: files,
	}, nil
}

func readImageDimensions(filePath string) (width, height int, err error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
