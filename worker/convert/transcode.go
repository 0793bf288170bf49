package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/deven96/stickermeta/utils"
	log "github.com/sirupsen/logrus"
)

// 500kb
const maxVideoFileSize = 512000

const (
	defaultQuality  = 60
	defaultFPS      = 20
	defaultDuration = 10
	minQuality      = 10
)

// Transcoder turns the raw media of a task into a WebP at task.ConvertedPath
type Transcoder interface {
	Transcode(ctx context.Context, task utils.ConvertTask) error
}

// ExecTranscoder shells out to imagemagick, cwebp and ffmpeg
type ExecTranscoder struct{}

func (ExecTranscoder) Transcode(ctx context.Context, task utils.ConvertTask) error {
	switch task.MediaType {
	case "image":
		return convertImage(ctx, task)
	case "video", "gif":
		return convertVideo(ctx, task, orDefault(task.Quality, defaultQuality))
	default:
		return fmt.Errorf("unsupported media type %q", task.MediaType)
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func run(cmd *exec.Cmd) error {
	var errb bytes.Buffer
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", cmd.Path, err, bytes.TrimSpace(errb.Bytes()))
	}
	return nil
}

// https://imagemagick.org/script/command-line-options.php#resize
func resizeImage(ctx context.Context, task utils.ConvertTask) error {
	return run(exec.CommandContext(ctx, "convert", task.MediaPath, "-resize", "512x512", "-background", "black", "-compose", "Copy", "-gravity", "center", "-extent", "512x512", "-quality", "92", task.MediaPath))
}

func convertImage(ctx context.Context, task utils.ConvertTask) error {
	if err := resizeImage(ctx, task); err != nil {
		return err
	}
	return run(exec.CommandContext(ctx, "cwebp", task.MediaPath, "-q", strconv.Itoa(orDefault(task.Quality, 92)), "-resize", "512", "512", "-o", task.ConvertedPath))
}

func isTargetSize(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		log.Errorf("cannot check if video length is animatable: %v", err)
		return false
	}
	return info.Size() <= maxVideoFileSize
}

func convertVideo(ctx context.Context, task utils.ConvertTask, qValue int) error {
	log.Debugf("Q value is %d", qValue)
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", task.MediaPath,
		"-t", strconv.Itoa(orDefault(task.Duration, defaultDuration)),
		"-fs", strconv.Itoa(maxVideoFileSize),
		"-filter:v", fmt.Sprintf("fps=fps=%d", orDefault(task.FPS, defaultFPS)),
		"-vcodec", "libwebp", "-compression_level", "0", "-q:v", strconv.Itoa(qValue),
		"-loop", "0", "-preset", "picture", "-an", "-vsync", "0", "-s", "512:512",
		task.ConvertedPath)
	if err := run(cmd); err != nil {
		return err
	}

	// validate converted video is the right size
	if !isTargetSize(task.ConvertedPath) && qValue-10 >= minQuality {
		log.Info("Reconverting video..")
		os.Remove(task.ConvertedPath)
		return convertVideo(ctx, task, qValue-10)
	}
	return nil
}
