package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// DecodeTurns reads a transcript stream and returns its turns in order.
// Metadata lines and lines that fail to parse are skipped, matching the
// store's tolerance for partial corruption.
func DecodeTurns(r io.Reader) ([]Turn, error) {
	var turns []Turn

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry record
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if entry.Type != "turn" || entry.Turn == nil {
			continue
		}
		if entry.Turn.Role == "" || entry.Turn.Text == "" {
			continue
		}

		turns = append(turns, *entry.Turn)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript stream: %w", err)
	}

	return turns, nil
}
