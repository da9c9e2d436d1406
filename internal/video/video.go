package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"strconv"
)

// ErrNoFrames is returned when there is nothing to encode.
var ErrNoFrames = errors.New("no frames to encode")

// Params describes the output stream.
type Params struct {
	FPS     int
	Encoder string // ffmpeg codec name, libx264 if empty
	Quality int    // crf / cq, or bitrate in 100 kbit/s units for videotoolbox
	Loops   int    // extra passes over the frame sequence
}

// FrameSource yields images in presentation order. Frame must return an
// image of the same size for every index.
type FrameSource interface {
	Len() int
	Frame(ctx context.Context, index int) (image.Image, error)
}

// Encoder turns a frame sequence into a video file.
type Encoder interface {
	EncodeFrames(ctx context.Context, frames FrameSource, videoPath string, params Params) error
}

// FFmpegEncoder pipes raw RGBA frames into an ffmpeg process.
type FFmpegEncoder struct {
	Binary string // ffmpeg if empty
}

func (e *FFmpegEncoder) EncodeFrames(ctx context.Context, frames FrameSource, videoPath string, params Params) error {
	if frames == nil || frames.Len() == 0 {
		return ErrNoFrames
	}
	if params.FPS <= 0 {
		return fmt.Errorf("invalid fps %d", params.FPS)
	}

	first, err := frames.Frame(ctx, 0)
	if err != nil {
		return fmt.Errorf("frame 0: %w", err)
	}
	size := first.Bounds()

	binary := e.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, binary, BuildArgs(size.Dx(), size.Dy(), videoPath, params)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	writeErr := writeSequence(ctx, stdin, frames, first, size, params.Loops)
	stdin.Close()
	waitErr := cmd.Wait()

	if writeErr != nil {
		return fmt.Errorf("write raw error: %w", writeErr)
	}
	if waitErr != nil {
		return fmt.Errorf("ffmpeg wait error: %w, output: %s", waitErr, out.String())
	}
	return nil
}

func writeSequence(ctx context.Context, w io.Writer, frames FrameSource, first image.Image, size image.Rectangle, loops int) error {
	for pass := 0; pass <= loops; pass++ {
		for i := 0; i < frames.Len(); i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			img := first
			if pass > 0 || i > 0 {
				var err error
				if img, err = frames.Frame(ctx, i); err != nil {
					return fmt.Errorf("frame %d: %w", i, err)
				}
			}
			if img.Bounds().Size() != size.Size() {
				return fmt.Errorf("frame %d is %v, want %v", i, img.Bounds().Size(), size.Size())
			}
			if err := WriteRawRGBA(w, img); err != nil {
				return err
			}
		}
	}
	return nil
}

// BuildArgs returns the ffmpeg arguments for a rawvideo RGBA stdin stream.
func BuildArgs(inputW, inputH int, videoPath string, params Params) []string {
	encoder := params.Encoder
	if encoder == "" {
		encoder = "libx264"
	}
	fps := strconv.Itoa(params.FPS)
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", inputW, inputH),
		"-framerate", fps,
		"-i", "-",
		"-r", fps,
		"-pix_fmt", "yuv420p",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", encoder,
	}

	quality := params.Quality
	switch encoder {
	case "h264_videotoolbox":
		if quality <= 0 {
			quality = 75
		}
		args = append(args, "-b:v", fmt.Sprintf("%dk", quality*100))
	case "h264_nvenc":
		if quality <= 0 {
			quality = 23
		}
		args = append(args, "-cq", strconv.Itoa(quality))
	default:
		if quality <= 0 {
			quality = 23
		}
		args = append(args, "-crf", strconv.Itoa(quality), "-preset", "medium")
	}

	return append(args, videoPath)
}

// WriteRawRGBA writes img as tightly packed RGBA rows.
func WriteRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Rect, img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}
