package webhook

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"nanohub/internal/types"
)

// EventDelimiter marks the first line of each webhook event block
const EventDelimiter = "=== MDM Event ==="

// ReadBlocks tails the last window lines of the webhook log and splits
// them into event blocks. The log is appended to by an external
// collaborator; a missing file is a misconfiguration and a hard error.
// Blocks are returned in file order, oldest to newest within the
// window; the oldest block may be a leading partial without its
// delimiter line.
func ReadBlocks(path string, window int) ([]types.Block, error) {
	lines, err := tailLines(path, window)
	if err != nil {
		return nil, err
	}
	return splitBlocks(lines), nil
}

// splitBlocks groups lines into delimiter-separated blocks. A delimiter
// line starts a new block and is included as its first line.
func splitBlocks(lines []string) []types.Block {
	var blocks []types.Block
	var current []string

	for _, line := range lines {
		if strings.Contains(line, EventDelimiter) {
			if len(current) > 0 {
				blocks = append(blocks, types.Block{Lines: current})
			}
			current = []string{line}
		} else {
			current = append(current, line)
		}
	}

	if len(current) > 0 {
		blocks = append(blocks, types.Block{Lines: current})
	}

	return blocks
}

// tailLines reads the last n lines of a file with a bounded backward
// read; the whole file is never loaded. Readers must tolerate lines
// being appended between calls.
func tailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open webhook log %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat webhook log: %w", err)
	}

	const chunkSize = 32 * 1024

	var buf []byte
	offset := info.Size()
	for offset > 0 && bytes.Count(buf, []byte{'\n'}) <= n {
		readSize := int64(chunkSize)
		if readSize > offset {
			readSize = offset
		}
		offset -= readSize

		chunk := make([]byte, readSize)
		if _, err := f.ReadAt(chunk, offset); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read webhook log: %w", err)
		}
		buf = append(chunk, buf...)
	}

	text := strings.TrimRight(string(buf), "\n")
	if text == "" {
		return nil, nil
	}

	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
