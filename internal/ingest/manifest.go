package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Source is one yearly honoree list: a local CSV file or an HTML page URL
type Source struct {
	Location string
	Year     int
}

// IsRemote reports whether the source is fetched over HTTP
func (s Source) IsRemote() bool {
	return strings.HasPrefix(s.Location, "http://") || strings.HasPrefix(s.Location, "https://")
}

// ReadManifestFile reads sources from a manifest file
func ReadManifestFile(filePath string) ([]Source, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadManifest(file)
}

// ReadManifest parses one "<location> <year>" pair per line. A comma may
// separate the fields. Blank lines and # comments are skipped and repeated
// locations are kept once.
func ReadManifest(r io.Reader) ([]Source, error) {
	var sources []Source
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
		if len(fields) != 2 {
			return nil, fmt.Errorf("manifest line %d: want \"<location> <year>\", got %q", lineNo, line)
		}
		year, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("manifest line %d: invalid year %q", lineNo, fields[1])
		}

		if !seen[fields[0]] {
			seen[fields[0]] = true
			sources = append(sources, Source{Location: fields[0], Year: year})
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}

	return sources, nil
}
