// Package buildings is the local campus gazetteer: building names and aliases mapped to coordinates.
package buildings

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/campus"
	appfs "github.com/8ddieHu0314/Course-Mapper-sub000/fs"
)

type Building struct {
	Name    string   `toml:"name" json:"name"`
	Aliases []string `toml:"aliases" json:"aliases,omitempty"`
	Lat     float64  `toml:"lat" json:"lat"`
	Lng     float64  `toml:"lng" json:"lng"`
	Address string   `toml:"address" json:"address,omitempty"`
}

type file struct {
	Buildings []Building `toml:"building"`
}

// Gazetteer is safe for concurrent use; Reload swaps the whole index.
type Gazetteer struct {
	mu        sync.RWMutex
	buildings []Building
	index     map[string]int // normalized name|alias -> buildings idx
	path      string
	logger    core.Logger
}

var _ campus.Buildings = (*Gazetteer)(nil)

func normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Parse decodes a gazetteer TOML document.
func Parse(data []byte) ([]Building, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "decoding buildings")
	}
	for i, b := range f.Buildings {
		if strings.TrimSpace(b.Name) == "" {
			return nil, errors.Errorf("building #%d: name is required", i+1)
		}
		if b.Lat < -90 || b.Lat > 90 || b.Lng < -180 || b.Lng > 180 || (b.Lat == 0 && b.Lng == 0) {
			return nil, errors.Errorf("building %q: invalid coordinates", b.Name)
		}
	}
	return f.Buildings, nil
}

// New returns a gazetteer holding `buildings`.
func New(buildings []Building, logger core.Logger) *Gazetteer {
	g := &Gazetteer{logger: logger}
	g.set(buildings)
	return g
}

// Load reads the gazetteer from `path`, or from the embedded Cornell list when path is empty.
func Load(path string, logger core.Logger) (*Gazetteer, error) {
	var data []byte
	var err error
	if path == "" {
		data, err = fs.ReadFile(appfs.FS, appfs.BuildingsFile)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading buildings")
	}
	buildings, err := Parse(data)
	if err != nil {
		return nil, err
	}
	g := New(buildings, logger)
	g.path = path
	return g, nil
}

func (g *Gazetteer) set(buildings []Building) {
	index := make(map[string]int, len(buildings)*2)
	for i, b := range buildings {
		index[normalize(b.Name)] = i
		for _, a := range b.Aliases {
			if _, taken := index[normalize(a)]; !taken {
				index[normalize(a)] = i
			}
		}
	}
	g.mu.Lock()
	g.buildings = buildings
	g.index = index
	g.mu.Unlock()
}

func (g *Gazetteer) Lookup(name string) (campus.Location, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i, ok := g.index[normalize(name)]
	if !ok {
		return campus.Location{}, false
	}
	b := g.buildings[i]
	return campus.Location{Lat: b.Lat, Lng: b.Lng, FormattedAddress: b.Address}, true
}

// All returns the buildings sorted by name.
func (g *Gazetteer) All() []Building {
	g.mu.RLock()
	out := append([]Building(nil), g.buildings...)
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (g *Gazetteer) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.buildings)
}

// Reload re-reads the gazetteer file. The current index is kept when the file is invalid.
func (g *Gazetteer) Reload() error {
	if g.path == "" {
		return nil
	}
	data, err := os.ReadFile(g.path)
	if err != nil {
		return errors.Wrap(err, "reading buildings")
	}
	buildings, err := Parse(data)
	if err != nil {
		return err
	}
	g.set(buildings)
	return nil
}

// Watch reloads the gazetteer whenever its file is written, until ctx is done.
// Events are debounced since editors often write files in several steps.
func (g *Gazetteer) Watch(ctx context.Context) error {
	if g.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	// watch the directory: editors replace files on save
	if err = watcher.Add(filepath.Dir(g.path)); err != nil {
		_ = watcher.Close()
		return errors.Wrapf(err, "watching %s", g.path)
	}

	go func() {
		defer watcher.Close()
		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(g.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(100*time.Millisecond, func() {
					if err := g.Reload(); err != nil {
						g.logger.Error(fmt.Sprintf("reloading buildings: %v", err), err)
						return
					}
					g.logger.Info(fmt.Sprintf("buildings reloaded: %d entries", g.Len()))
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				g.logger.Warn(fmt.Sprintf("buildings watcher: %v", err), err)
			}
		}
	}()
	return nil
}
