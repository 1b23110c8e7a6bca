package util

import (
	"encoding/json"
	"fmt"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ProbeVideoDuration 使用 ffprobe 读取视频时长（秒）
func ProbeVideoDuration(videoPath string) (float64, error) {
	output, err := ffmpeg.Probe(videoPath)
	if err != nil {
		return 0, fmt.Errorf("probe video: %w", err)
	}
	return parseProbeDuration(output)
}

func parseProbeDuration(probeJSON string) (float64, error) {
	var result struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(probeJSON), &result); err != nil {
		return 0, fmt.Errorf("parse probe output: %w", err)
	}
	if result.Format.Duration == "" {
		return 0, nil
	}
	return strconv.ParseFloat(result.Format.Duration, 64)
}
