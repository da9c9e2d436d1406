package settings

import (
	"fmt"
	"math"
	"sync"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"

	"github.com/mertkiray/promptvfx/internal/clock"
	"github.com/mertkiray/promptvfx/internal/logger"
)

// Prefs are the playback preferences remembered between runs.
type Prefs struct {
	FPS     int     `yaml:"fps"`
	Speed   float64 `yaml:"speed"`
	Workers int     `yaml:"workers"` // 0 means auto
}

func DefaultPrefs() Prefs {
	return Prefs{FPS: 8, Speed: 1}
}

// Validate rejects non-positive fps or speed and negative workers.
func (p Prefs) Validate() error {
	if p.FPS <= 0 {
		return fmt.Errorf("%w: got %d", clock.ErrFPS, p.FPS)
	}
	if !(p.Speed > 0) || math.IsInf(p.Speed, 0) {
		return fmt.Errorf("%w: got %g", clock.ErrSpeed, p.Speed)
	}
	if p.Workers < 0 {
		return fmt.Errorf("workers %d < 0", p.Workers)
	}
	return nil
}

const (
	prefsObject   = "settings"
	prefsProperty = "playback"
)

// Manager keeps Prefs in memory and persists them through gdata. With a
// nil gdata manager it runs in memory only and Save is a no-op.
type Manager struct {
	mu    sync.Mutex
	store *gdata.Manager
	prefs Prefs
	log   *logger.Logger
}

// Open creates a Manager backed by the per-user data directory of app.
// When gdata cannot be opened the manager degrades to memory only.
func Open(app string, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Discard()
	}
	store, err := gdata.Open(gdata.Config{AppName: app})
	if err != nil {
		log.Warn("[!] preferences not persisted: %v", err)
		store = nil
	}
	return NewManager(store, log)
}

// NewManager loads saved prefs from store, falling back to defaults.
func NewManager(store *gdata.Manager, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Discard()
	}
	m := &Manager{store: store, prefs: DefaultPrefs(), log: log}
	if err := m.Load(); err != nil {
		log.Warn("[!] failed to load preferences: %v (using defaults)", err)
	}
	return m
}

// Persistent reports whether Save writes to disk.
func (m *Manager) Persistent() bool { return m.store != nil }

// Load replaces the in-memory prefs with the saved ones. A missing or
// invalid record leaves the defaults in place.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prefs = DefaultPrefs()
	if m.store == nil || !m.store.ObjectPropExists(prefsObject, prefsProperty) {
		return nil
	}
	data, err := m.store.LoadObjectProp(prefsObject, prefsProperty)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	var p Prefs
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("unmarshal preferences: %w", err)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	m.prefs = p
	m.log.Debug("preferences loaded: %+v", p)
	return nil
}

func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	data, err := yaml.Marshal(m.prefs)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	if err := m.store.SaveObjectProp(prefsObject, prefsProperty, data); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

func (m *Manager) Prefs() Prefs {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs
}

// Update applies p in memory if it is valid. Call Save to persist.
func (m *Manager) Update(p Prefs) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.prefs = p
	m.mu.Unlock()
	return nil
}
