package services

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadBlackList reads one forbidden password per line. Blank lines and lines
// starting with # are skipped.
func LoadBlackList(filePath string) (map[string]bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening password blacklist: %w", err)
	}
	defer file.Close()

	blackList := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		blackList[line] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading password blacklist: %w", err)
	}
	return blackList, nil
}
