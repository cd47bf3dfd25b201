package moderation

import (
	"bufio"
	"io/fs"
	"path"
	"sort"
	"strings"

	"pong-chat/errors"
)

// CensoredData is the result of loading censored word lists.
type CensoredData struct {
	Words     []string
	Languages []string
}

// LoadCensoredWords reads censored words from name inside fsys. name is either
// a single list or a directory of lists named after their language ("fr.txt").
// Lists hold one word per line, blank lines and lines starting with '#' are ignored.
func LoadCensoredWords(fsys fs.FS, name string) (*CensoredData, error) {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, err
	}

	files := []string{name}
	if info.IsDir() {
		entries, err := fs.ReadDir(fsys, name)
		if err != nil {
			return nil, err
		}
		files = files[:0]
		for _, entry := range entries {
			if !entry.IsDir() {
				files = append(files, path.Join(name, entry.Name()))
			}
		}
	}

	var languages []string
	uniqueWords := make(map[string]struct{})
	for _, file := range files {
		languages = append(languages, strings.TrimSuffix(path.Base(file), path.Ext(file)))
		if err := readWords(fsys, file, uniqueWords); err != nil {
			return nil, err
		}
	}
	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}
	sort.Strings(words)
	return &CensoredData{Words: words, Languages: languages}, nil
}

func readWords(fsys fs.FS, name string, into map[string]struct{}) error {
	f, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	// Scanner handles both \n and \r\n line endings.
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		into[line] = struct{}{}
	}
	return scanner.Err()
}
