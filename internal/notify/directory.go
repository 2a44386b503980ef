package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/shenikar/incident_triage/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// directoryFile - формат файла подписчиков
type directoryFile struct {
	Subscribers []models.Subscriber `yaml:"subscribers"`
}

// Directory - справочник подписчиков из YAML файла. Только чтение.
type Directory struct {
	path   string
	logger *logrus.Logger

	mu          sync.RWMutex
	subscribers []models.Subscriber
}

// LoadDirectory читает файл подписчиков. Отсутствующий файл дает пустой справочник.
func LoadDirectory(path string, logger *logrus.Logger) (*Directory, error) {
	d := &Directory{path: path, logger: logger}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// NewStaticDirectory - справочник без файла
func NewStaticDirectory(subscribers []models.Subscriber) *Directory {
	return &Directory{subscribers: subscribers, logger: logrus.StandardLogger()}
}

// Subscribers возвращает снимок списка
func (d *Directory) Subscribers() []models.Subscriber {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Subscriber, len(d.subscribers))
	copy(out, d.subscribers)
	return out
}

// Reload перечитывает файл. При ошибке разбора прежний список сохраняется.
func (d *Directory) Reload() error {
	subscribers, err := readDirectoryFile(d.path)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.subscribers = subscribers
	d.mu.Unlock()
	d.logger.WithFields(logrus.Fields{
		"path":        d.path,
		"subscribers": len(subscribers),
	}).Info("Subscriber directory loaded")
	return nil
}

func readDirectoryFile(path string) ([]models.Subscriber, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []models.Subscriber{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read subscriber directory %s: %w", path, err)
	}
	var file directoryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse subscriber directory %s: %w", path, err)
	}
	if file.Subscribers == nil {
		file.Subscribers = []models.Subscriber{}
	}
	return file.Subscribers, nil
}

// Watch перечитывает справочник при изменении файла. Следит за каталогом,
// так как редакторы заменяют файл переименованием.
func (d *Directory) Watch(ctx context.Context) error {
	if d.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	target := filepath.Clean(d.path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if err := d.Reload(); err != nil {
					d.logger.WithError(err).Error("Failed to reload subscriber directory, keeping previous list")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				d.logger.WithError(err).Warn("Subscriber directory watcher error")
			}
		}
	}()
	return watcher.Add(filepath.Dir(target))
}
