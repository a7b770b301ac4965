package compress

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"shrink/internal/encoding"
	"shrink/internal/fileutil"
	"shrink/internal/logging"
	"shrink/internal/procrun"
	"shrink/internal/services"
)

// compressImage re-encodes an image in process. Formats the decoder does not
// know are handed to ffmpeg when it is available.
func (j *job) compressImage(ctx context.Context) (string, encoding.Path, error) {
	settings, err := j.req.Image.Normalize()
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, "compress", "settings", "", err)
	}
	plan := encoding.BuildImagePlan(j.input, settings, j.runner.opts.Tuning)
	j.transition(encodingState(encoding.PathSoftware),
		logging.String("format", string(plan.Format)),
		logging.Int("jpeg_quality", plan.JPEGQuality),
	)
	if err := fileutil.RemoveIfExists(plan.Output); err != nil {
		return "", "", services.Wrap(services.ErrIOFailed, "compress", "remove stale output", plan.Output, err)
	}
	if err := contextError(ctx, "decode"); err != nil {
		return "", "", err
	}

	img, err := imaging.Open(j.input, imaging.AutoOrientation(true))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return j.compressImageWithFFmpeg(ctx, plan)
		}
		return "", "", services.Wrap(services.ErrEncodingFailed, "compress", "decode", j.input, err)
	}
	if err := writeImage(img, plan); err != nil {
		return "", "", services.Wrap(services.ErrEncodingFailed, "compress", "encode", plan.Output, err)
	}
	return plan.Output, encoding.PathSoftware, nil
}

func writeImage(img image.Image, plan encoding.ImagePlan) error {
	out, err := os.Create(plan.Output)
	if err != nil {
		return err
	}
	switch plan.Format {
	case encoding.FormatPNG:
		err = imaging.Encode(out, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	default:
		err = imaging.Encode(out, img, imaging.JPEG, imaging.JPEGQuality(plan.JPEGQuality))
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(plan.Output)
	}
	return err
}

func (j *job) compressImageWithFFmpeg(ctx context.Context, plan encoding.ImagePlan) (string, encoding.Path, error) {
	ffmpegBin, err := j.binary("ffmpeg")
	if err != nil {
		return "", "", err
	}
	j.logger.Info("image format not decodable in process; using ffmpeg", logging.String(logging.FieldEventType, "image_ffmpeg_fallback"))
	if _, err := procrun.Run(ctx, ffmpegBin, encoding.FFmpegImageArgs(j.input, plan)); err != nil {
		_ = fileutil.RemoveIfExists(plan.Output)
		if ctxErr := contextError(ctx, "encode"); ctxErr != nil {
			return "", "", ctxErr
		}
		var spawnErr *procrun.SpawnError
		if errors.As(err, &spawnErr) {
			if spawnErr.NotFound() {
				return "", "", services.Wrap(services.ErrDependencyMissing, "compress", "encode", ffmpegBin, err)
			}
			return "", "", services.Wrap(services.ErrSpawnFailed, "compress", "encode", ffmpegBin, err)
		}
		return "", "", services.Wrap(services.ErrEncodingFailed, "compress", "encode", plan.Output, err)
	}
	if _, ok := fileutil.NonEmpty(plan.Output); !ok {
		return "", "", services.Wrap(services.ErrEncodingFailed, "compress", "encode", "ffmpeg wrote no image", nil)
	}
	return plan.Output, encoding.PathSoftware, nil
}
