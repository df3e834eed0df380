package services

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// MergeStats summarizes one MergeFiles run.
type MergeStats struct {
	Files  int    `json:"files"`
	Rows   int    `json:"rows"`
	Header string `json:"-"`
}

// MergeProgress is called after each input file is copied.
type MergeProgress func(path string, rows int)

// PeriodFiles lists the files MergeFiles would read for prefix, in the order
// it reads them: period subdirectories and files in lexical order.
func PeriodFiles(prefix, rootDir string) ([]string, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening survey directory %s", rootDir)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("survey path %s is not a directory", rootDir)
	}

	entries, err := os.ReadDir(rootDir)
	if err != nil {
		return nil, errors.Wrapf(err, "error listing %s", rootDir)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(rootDir, entry.Name(), globEscape(prefix)+"*.txt"))
		if err != nil {
			return nil, errors.Wrapf(err, "bad file prefix %q", prefix)
		}
		files = append(files, matches...)
	}
	return files, nil
}

// MergeFiles concatenates every <prefix>*.txt found in the period
// subdirectories of rootDir into dest. The first file's header is written
// once; the headers of later files are dropped. Data lines are copied in
// file-then-line order with line endings normalized to "\n".
func MergeFiles(prefix, rootDir, dest string, progress MergeProgress) (MergeStats, error) {
	files, err := PeriodFiles(prefix, rootDir)
	if err != nil {
		return MergeStats{}, err
	}
	if len(files) == 0 {
		return MergeStats{}, errors.Wrapf(ErrNoInputFiles, "no %s*.txt files under %s", prefix, rootDir)
	}

	var stats MergeStats
	err = writeFileAtomic(dest, func(w io.Writer) error {
		for _, path := range files {
			rows, header, err := copyDataLines(path, w, stats.Header == "")
			if err != nil {
				return err
			}
			if header == "" {
				continue
			}
			if stats.Header == "" {
				stats.Header = header
			}
			stats.Files++
			stats.Rows += rows
			if progress != nil {
				progress(path, rows)
			}
		}
		return nil
	})
	if err != nil {
		return MergeStats{}, err
	}
	return stats, nil
}

// copyDataLines copies the lines of path after its header into w, writing
// the header too when withHeader is set. It returns the data line count and
// the header, which is empty for a file with no non-blank lines. Blank lines
// before the header are skipped.
func copyDataLines(path string, w io.Writer, withHeader bool) (int, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, "", errors.Wrapf(err, "error opening %s", path)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var header string
	for strings.TrimSpace(header) == "" {
		if !scanner.Scan() {
			return 0, "", errors.Wrapf(scanner.Err(), "error reading %s", path)
		}
		header = strings.TrimPrefix(scanner.Text(), utf8BOM)
	}
	if withHeader {
		if _, err := fmt.Fprintln(w, header); err != nil {
			return 0, "", err
		}
	}

	rows := 0
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return 0, "", err
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return 0, "", errors.Wrapf(err, "error reading %s", path)
	}
	return rows, header, nil
}

// MissingFiles checks that every period subdirectory of rootDir holds a file
// for each prefix and returns one message per absent file.
func MissingFiles(rootDir string, prefixes ...string) ([]string, error) {
	entries, err := os.ReadDir(rootDir)
	if err != nil {
		return nil, errors.Wrapf(err, "error listing survey directory %s", rootDir)
	}

	var missing []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		for _, prefix := range prefixes {
			matches, err := filepath.Glob(filepath.Join(rootDir, entry.Name(), globEscape(prefix)+"*.txt"))
			if err != nil {
				return nil, errors.Wrapf(err, "bad file prefix %q", prefix)
			}
			if len(matches) == 0 {
				missing = append(missing, fmt.Sprintf("Missing '%s' file in folder %s.", prefix, entry.Name()))
			}
		}
	}
	return missing, nil
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return r.Replace(s)
}
