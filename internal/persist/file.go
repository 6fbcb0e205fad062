package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// ErrCorruptDocument is returned by GetItem when the file holds invalid JSON.
var ErrCorruptDocument = errors.New("corrupt state document")

// File is a Backend that keeps every key in a single JSON document.
type File struct {
	mu       sync.Mutex
	filePath string
	log      *zap.Logger
}

// NewFile returns a File backend rooted at filePath. The file and its
// directory are created on the first write.
func NewFile(filePath string, logger *zap.Logger) *File {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &File{filePath: filePath, log: logger}
}

func (f *File) GetItem(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := items[key]
	return v, ok, nil
}

func (f *File) SetItem(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.load()
	if errors.Is(err, ErrCorruptDocument) {
		// Set the unreadable document aside and start over so writes keep
		// working.
		aside := f.filePath + ".corrupt"
		if rerr := os.Rename(f.filePath, aside); rerr != nil {
			return fmt.Errorf("move aside %s: %w", f.filePath, rerr)
		}
		f.log.Warn("moved corrupt state document aside",
			zap.String("path", f.filePath), zap.String("moved_to", aside), zap.Error(err))
		items, err = map[string]string{}, nil
	}
	if err != nil {
		return err
	}
	items[key] = value
	return f.save(items)
}

// load reads the document. A missing file is an empty document.
func (f *File) load() (map[string]string, error) {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", f.filePath, err)
	}
	items := map[string]string{}
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptDocument, f.filePath, err)
	}
	return items, nil
}

func (f *File) save(items map[string]string) error {
	if dir := filepath.Dir(f.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	// Write-then-rename keeps the previous document intact on a failed write.
	tmp := f.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, f.filePath)
}
