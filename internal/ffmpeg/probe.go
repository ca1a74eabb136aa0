package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/kikiluvv/replaycoach/pkg/util"
)

// ProbeVideo extracts metadata from a video file
func (e *Executor) ProbeVideo(ctx context.Context, filePath string) (*VideoInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("%w: file path is required", ErrProbe)
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrProbe, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%w: %v", ErrProbe, err)
	}

	info, err := parseProbeOutput(filePath, output)
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("file", filePath).
		Int("width", info.Width).
		Int("height", info.Height).
		Float64("fps", info.FPS).
		Int("frames", info.FrameCount).
		Msg("probed video")

	return info, nil
}

// parseProbeOutput converts ffprobe JSON into VideoInfo. The first video
// stream wins.
func parseProbeOutput(filePath string, output []byte) (*VideoInfo, error) {
	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("%w: failed to parse ffprobe output: %v", ErrProbe, err)
	}

	info := &VideoInfo{
		FilePath: filePath,
	}

	formatDuration, _ := strconv.ParseFloat(probe.Format.Duration, 64)
	if formatDuration > 0 {
		info.Duration = time.Duration(formatDuration * float64(time.Second))
	}

	found := false
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if found {
				continue
			}
			found = true

			info.Width = stream.Width
			info.Height = stream.Height
			info.VideoCodec = stream.CodecName

			info.FPS = util.ParseFrameRate(stream.RFrameRate)
			if info.FPS == 0 {
				info.FPS = util.ParseFrameRate(stream.AvgFrameRate)
			}

			if n, err := strconv.Atoi(stream.NbFrames); err == nil && n > 0 {
				info.FrameCount = n
				continue
			}

			// Matroska and friends omit nb_frames
			duration := formatDuration
			if d, err := strconv.ParseFloat(stream.Duration, 64); err == nil && d > 0 {
				duration = d
			}
			info.FrameCount = util.EstimateFrameCount(duration, info.FPS)
		case "audio":
			info.HasAudio = true
		}
	}

	if !found || info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoVideoStream, filePath)
	}

	return info, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
}
