package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadSymbols reads the symbol list, one symbol per line
func LoadSymbols(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open symbol list: %v", ErrConfig, err)
	}
	defer f.Close()

	var symbols []string
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		symbol := strings.TrimSpace(scanner.Text())
		if symbol == "" {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		symbols = append(symbols, symbol)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read symbol list %s: %v", ErrConfig, path, err)
	}

	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: symbol list %s is empty", ErrConfig, path)
	}
	return symbols, nil
}
