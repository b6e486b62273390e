package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CheckFFmpeg reports the FFmpeg binary the separator will use to decode
// compressed input (mp3, ogg, flac).
//
// An ffmpeg next to the separator binary wins, which covers virtualenv and
// conda layouts where both live in the same bin directory. Otherwise "ffmpeg"
// is resolved from PATH.
func CheckFFmpeg(separatorBinary string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Decodes compressed input for the separator",
		Optional:    true,
	}

	binary := strings.TrimSpace(separatorBinary)
	if binary != "" {
		if resolved, err := exec.LookPath(binary); err == nil {
			candidate := filepath.Join(filepath.Dir(resolved), "ffmpeg")
			if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
				result.Command = candidate
				result.Available = true
				return result
			}
		}
	}

	ffmpegName := "ffmpeg"
	if ffmpegPath, err := exec.LookPath(ffmpegName); err == nil {
		result.Command = ffmpegPath
		result.Available = true
		return result
	}

	result.Command = ffmpegName
	result.Available = false
	result.Detail = fmt.Sprintf("binary %q not found; only wav input can be decoded", ffmpegName)
	return result
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
