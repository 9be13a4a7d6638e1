package probe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Source describes a reference video file
type Source struct {
	Path   string
	Name   string
	Size   int64
	Width  int
	Height int
}

// Inspect stats a source file and reads its dimensions via ffprobe
func Inspect(ctx context.Context, path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat source %s: %w", path, err)
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	dims := strings.Split(strings.TrimSpace(string(out)), "x")
	if len(dims) != 2 {
		return nil, fmt.Errorf("unexpected ffprobe output for %s: %q", path, strings.TrimSpace(string(out)))
	}
	width, err := strconv.Atoi(dims[0])
	if err != nil {
		return nil, fmt.Errorf("bad width in ffprobe output: %w", err)
	}
	height, err := strconv.Atoi(dims[1])
	if err != nil {
		return nil, fmt.Errorf("bad height in ffprobe output: %w", err)
	}

	return &Source{
		Path:   path,
		Name:   filepath.Base(path),
		Size:   info.Size(),
		Width:  width,
		Height: height,
	}, nil
}
