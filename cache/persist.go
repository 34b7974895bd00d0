package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/cyp0633/caldora-sync/calendar"
	"github.com/goccy/go-json"
)

const fileVersion = 1

type fileFormat struct {
	Version   int              `json:"version"`
	Calendars []calendarRecord `json:"calendars"`
}

type calendarRecord struct {
	ID         calendar.ID  `json:"id"`
	Name       string       `json:"name"`
	Components []string     `json:"components"`
	Items      []itemRecord `json:"items"`
}

type itemRecord struct {
	ID        calendar.ItemID     `json:"id"`
	Kind      string              `json:"kind"`
	Name      string              `json:"name"`
	Completed bool                `json:"completed"`
	Status    calendar.SyncStatus `json:"status"`
}

// Open loads the cache stored at path. A missing file yields an empty cache
// that Save will create.
func Open(path string, opts ...Option) (*Cache, error) {
	c := New(opts...)
	c.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		c.logger.Debug("no cache file yet", "path", path)
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode cache file %s: %w", path, err)
	}
	if f.Version != fileVersion {
		return nil, fmt.Errorf("unsupported cache file version %d", f.Version)
	}

	for _, rec := range f.Calendars {
		var components calendar.SupportedComponents
		for _, name := range rec.Components {
			if flag, ok := calendar.ComponentFromName(name); ok {
				components |= flag
			}
		}
		cal := newCalendar(rec.ID, rec.Name, components)
		for _, it := range rec.Items {
			if it.Kind != calendar.KindTask.String() {
				return nil, fmt.Errorf("item %s has unsupported kind %q", it.ID, it.Kind)
			}
			cal.items[it.ID] = calendar.RestoreTask(it.ID, calendar.Task{Name: it.Name, Completed: it.Completed}, it.Status)
		}
		c.calendars[rec.ID] = cal
	}

	c.logger.Debug("loaded cache", "path", path, "calendars", len(c.calendars))
	return c, nil
}

// Path returns the file the cache persists to, or "" for a memory-only cache.
func (c *Cache) Path() string {
	return c.path
}

// Save writes the cache to its file. The file is replaced atomically so a
// crash never leaves a truncated cache behind.
func (c *Cache) Save() error {
	if c.path == "" {
		return errors.New("cache has no file")
	}

	data, err := json.MarshalIndent(c.toFile(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	c.logger.Debug("saved cache", "path", c.path)
	return nil
}

// toFile snapshots the cache in a stable order.
func (c *Cache) toFile() fileFormat {
	cals := c.snapshot()
	sort.Slice(cals, func(i, j int) bool { return cals[i].id < cals[j].id })

	f := fileFormat{Version: fileVersion, Calendars: make([]calendarRecord, 0, len(cals))}
	for _, cal := range cals {
		f.Calendars = append(f.Calendars, cal.record())
	}
	return f
}

func (c *Calendar) record() calendarRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec := calendarRecord{
		ID:         c.id,
		Name:       c.name,
		Components: c.components.Names(),
		Items:      make([]itemRecord, 0, len(c.items)),
	}
	for _, item := range c.items {
		task, _ := item.Task()
		rec.Items = append(rec.Items, itemRecord{
			ID:        item.ID(),
			Kind:      item.Kind().String(),
			Name:      task.Name,
			Completed: task.Completed,
			Status:    item.Status(),
		})
	}
	sort.Slice(rec.Items, func(i, j int) bool { return rec.Items[i].ID < rec.Items[j].ID })
	return rec
}
