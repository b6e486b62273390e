package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const maxLineBytes = 1024 * 1024

// Last returns up to n final complete lines of path and the offset just past
// them. A missing file yields no lines and offset zero.
func Last(path string, n int) ([]string, int64, error) {
	lines, offset, err := readFrom(path, 0)
	if err != nil {
		return nil, 0, err
	}
	if n <= 0 {
		return nil, offset, nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, offset, nil
}

// Follow polls path every interval and calls emit for each complete line
// written after offset. It returns ctx.Err() when ctx ends.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		size, err := fileSize(path)
		if err != nil {
			return err
		}
		if size < offset {
			// Rotated: the old file was renamed away and a fresh one started.
			offset = 0
		}
		lines, next, err := readFrom(path, offset)
		if err != nil {
			return err
		}
		for _, line := range lines {
			emit(line)
		}
		offset = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("log path %q is a directory", path)
	}
	return info.Size(), nil
}

// readFrom returns the complete lines after offset and the offset of the
// first byte not consumed. A trailing line without a newline is left unread.
func readFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, offset, nil
			}
			return lines, offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		lines = append(lines, line)
	}
}
