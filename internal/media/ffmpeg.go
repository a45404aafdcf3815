package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Toolchain shells out to ffmpeg/ffprobe for local media work. Every method
// honors ctx cancellation and folds the tail of stderr into returned errors.
type Toolchain struct {
	log *zap.Logger
}

func NewToolchain(log *zap.Logger) *Toolchain {
	return &Toolchain{log: log}
}

// Check verifies ffmpeg and ffprobe are on PATH; called once at startup.
func (t *Toolchain) Check() error {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found in PATH: %w", bin, err)
		}
	}
	return nil
}

// Duration probes the length of a media file in seconds.
func (t *Toolchain) Duration(ctx context.Context, path string) (float64, error) {
	out, err := t.run(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, err
	}
	return parseDuration(out)
}

// Concat joins the input videos in order without re-encoding, through the
// concat demuxer and a generated list file.
func (t *Toolchain) Concat(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("concat: no inputs")
	}

	listPath := output + ".list.txt"
	if err := writeConcatList(inputs, listPath); err != nil {
		return err
	}
	defer os.Remove(listPath)

	_, err := t.run(ctx, "ffmpeg", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		output,
	)
	return err
}

// MuxAudio lays the audio file under the video stream: video copied, audio
// encoded to aac.
func (t *Toolchain) MuxAudio(ctx context.Context, videoPath, audioPath, output string) error {
	_, err := t.run(ctx, "ffmpeg", "-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		output,
	)
	return err
}

// ExtractAudio pulls the audio track out as mp3, the transcription input.
func (t *Toolchain) ExtractAudio(ctx context.Context, videoPath, output string) error {
	_, err := t.run(ctx, "ffmpeg", "-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		output,
	)
	return err
}

// BurnSubtitles renders the SRT file into the video frames; the audio track
// is copied through.
func (t *Toolchain) BurnSubtitles(ctx context.Context, videoPath, srtPath, output string) error {
	_, err := t.run(ctx, "ffmpeg", "-y",
		"-i", videoPath,
		"-vf", fmt.Sprintf("subtitles='%s'", srtPath),
		"-c:a", "copy",
		output,
	)
	return err
}

func (t *Toolchain) run(ctx context.Context, bin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.log.Debug("running media command", zap.String("bin", bin), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", bin, err, tail(stderr.String(), 512))
	}
	return stdout.String(), nil
}

// writeConcatList writes a concat demuxer list file with absolute paths.
func writeConcatList(inputs []string, listPath string) error {
	var b strings.Builder
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", in, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

func parseDuration(out string) (float64, error) {
	s := strings.TrimSpace(out)
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return d, nil
}

// tail keeps at most the last n bytes of s.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
