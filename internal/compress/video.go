package compress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shrink/internal/encoding"
	"shrink/internal/fileutil"
	"shrink/internal/logging"
	"shrink/internal/media/ffprobe"
	"shrink/internal/procrun"
	"shrink/internal/services"
)

func (j *job) binary(name string) (string, error) {
	if j.runner.opts.Binaries == nil {
		return "", services.Wrap(services.ErrDependencyMissing, "compress", "resolve", name+" resolver not configured", nil)
	}
	path, err := j.runner.opts.Binaries.Binary(name)
	if err != nil {
		if errors.Is(err, services.ErrDependencyMissing) {
			return "", err
		}
		return "", services.Wrap(services.ErrDependencyMissing, "compress", "resolve", name, err)
	}
	return path, nil
}

func (j *job) compressVideo(ctx context.Context) (string, encoding.Path, error) {
	settings, err := j.req.Video.Normalize()
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, "compress", "settings", "", err)
	}
	ffmpegBin, err := j.binary("ffmpeg")
	if err != nil {
		return "", "", err
	}
	ffprobeBin, err := j.binary("ffprobe")
	if err != nil {
		return "", "", err
	}

	j.transition(StateProbing)
	md, err := ffprobe.Probe(ctx, ffprobeBin, j.input)
	if err != nil {
		if ctxErr := contextError(ctx, "probe"); ctxErr != nil {
			return "", "", ctxErr
		}
		if errors.Is(err, services.ErrDependencyMissing) || errors.Is(err, services.ErrSpawnFailed) {
			return "", "", err
		}
		logging.WarnWithContext(j.logger, "probe failed; continuing with unknown duration", "probe_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `shrink probe` on the file to inspect it"),
			logging.String(logging.FieldImpact, "percent progress disabled"),
		)
	}
	j.logger.Info("probed input",
		logging.Float64("duration_seconds", md.DurationSeconds),
		logging.Int64("audio_bitrate_bps", md.AudioBitrateBps),
		logging.Int64("video_bitrate_bps", md.VideoBitrateBps),
	)

	plans := encoding.BuildVideoPlans(j.input, settings, j.runner.opts.Platform, md, j.runner.opts.Tuning)
	var lastErr error
	for i, plan := range plans {
		j.transition(encodingState(plan.Path), logging.String("encoder", plan.Encoder))
		if err := fileutil.RemoveIfExists(plan.Output); err != nil {
			return "", "", services.Wrap(services.ErrIOFailed, "compress", "remove stale output", plan.Output, err)
		}

		runErr := j.encode(ctx, ffmpegBin, plan, md.DurationSeconds)
		_, produced := fileutil.NonEmpty(plan.Output)
		if runErr == nil && produced {
			return plan.Output, plan.Path, nil
		}
		if runErr != nil {
			if ctxErr := contextError(ctx, "encode"); ctxErr != nil {
				_ = fileutil.RemoveIfExists(plan.Output)
				return "", "", ctxErr
			}
			var spawnErr *procrun.SpawnError
			if errors.As(runErr, &spawnErr) {
				if spawnErr.NotFound() {
					return "", "", services.Wrap(services.ErrDependencyMissing, "compress", "encode", ffmpegBin, runErr)
				}
				return "", "", services.Wrap(services.ErrSpawnFailed, "compress", "encode", ffmpegBin, runErr)
			}
			if plan.Path == encoding.PathHardware && produced {
				logging.WarnWithContext(j.logger, "hardware encoder exited with an error but wrote output; keeping it", "hardware_partial_success",
					logging.String("encoder", plan.Encoder),
					logging.Error(runErr),
					logging.String(logging.FieldErrorHint, "set encoding.hardware_encoder = \"none\" if outputs look truncated"),
					logging.String(logging.FieldImpact, "output may be incomplete"),
				)
				return plan.Output, plan.Path, nil
			}
		} else {
			runErr = fmt.Errorf("%s exited cleanly but wrote no output", plan.Encoder)
		}
		lastErr = runErr
		if i < len(plans)-1 {
			logging.WarnWithContext(j.logger, "encode attempt failed; trying next plan", "encoder_fallback",
				logging.String("encoder", plan.Encoder),
				logging.String("next_encoder", plans[i+1].Encoder),
				logging.Error(runErr),
				logging.String(logging.FieldImpact, "falling back to software encoding"),
			)
		}
	}

	_ = fileutil.RemoveIfExists(encoding.OutputPath(j.input))
	return "", "", services.Wrap(services.ErrEncodingFailed, "compress", "encode", "all encoding attempts failed", lastErr)
}

func (j *job) encode(ctx context.Context, binary string, plan encoding.Plan, duration float64) error {
	j.logger.Debug("starting encoder",
		logging.String("encoder", plan.Encoder),
		logging.String("args", strings.Join(plan.Args, " ")),
	)
	handle, err := procrun.Start(ctx, binary, plan.Args)
	if err != nil {
		return err
	}
	for line := range handle.Lines() {
		elapsed, ok := encoding.ParseElapsed(line)
		if !ok {
			continue
		}
		if percent, ok := encoding.Percent(elapsed, duration); ok {
			j.progress.observe(percent)
		}
	}
	_, err = handle.Wait()
	return err
}
