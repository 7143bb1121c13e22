package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/pipeline"
)

// Clipper is the ffmpeg-backed implementation of the media clip service.
// Extraction re-encodes rather than stream-copies so cut points do not snap
// to keyframes, which matters at highlight padding granularity.
type Clipper struct {
	FFmpegPath string
	WorkDir    string
}

func NewClipper(ffmpegPath, workDir string) (*Clipper, error) {
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("create clip work dir: %w", err)
	}
	return &Clipper{FFmpegPath: ffmpegPath, WorkDir: workDir}, nil
}

// ExtractClip cuts [start, end) out of the source video into a new artifact
// and returns its path.
func (c *Clipper) ExtractClip(ctx context.Context, videoRef string, start, end float64) (string, error) {
	if end <= start {
		return "", &pipeline.ClipError{Cause: fmt.Errorf("invalid clip window [%v,%v)", start, end)}
	}

	out := filepath.Join(c.WorkDir, "clip_"+uuid.New().String()+".mp4")
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-i", videoRef,
		"-t", fmt.Sprintf("%.3f", end-start),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-c:a", "aac",
		out,
	}

	if err := c.run(ctx, args); err != nil {
		os.Remove(out)
		return "", &pipeline.ClipError{Cause: err}
	}
	return out, nil
}

// Concat joins the clips into a single artifact named outName, using the
// ffmpeg concat demuxer over a generated list file.
func (c *Clipper) Concat(ctx context.Context, clipPaths []string, outName string) (string, error) {
	if len(clipPaths) == 0 {
		return "", &pipeline.ClipError{Cause: fmt.Errorf("no clips to concatenate")}
	}

	listPath := filepath.Join(c.WorkDir, "concat_"+uuid.New().String()+".txt")
	var list strings.Builder
	for _, p := range clipPaths {
		fmt.Fprintf(&list, "file '%s'\n", p)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0644); err != nil {
		return "", &pipeline.ClipError{Cause: fmt.Errorf("write concat list: %w", err)}
	}
	defer os.Remove(listPath)

	out := filepath.Join(c.WorkDir, outName)
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		out,
	}

	if err := c.run(ctx, args); err != nil {
		os.Remove(out)
		return "", &pipeline.ClipError{Cause: err}
	}

	// Intermediate clips are throwaway once the final artifact exists.
	for _, p := range clipPaths {
		if err := os.Remove(p); err != nil {
			log.Printf("Clipper: could not remove intermediate clip %s: %v", p, err)
		}
	}
	return out, nil
}

func (c *Clipper) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, c.FFmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		tail := string(output)
		if len(tail) > 512 {
			tail = tail[len(tail)-512:]
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, tail)
	}
	return nil
}
