// Package store persists the small amount of client-local state the app
// keeps: the last resolved location and the ambient-motion opt-out flag,
// each under a namespaced key.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nimbusweather/nimbus/internal/weather"
)

const (
	keyLastLocation = "nimbus:last-location"
	keyMotion       = "nimbus:motion"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("store: key not found")

// Prefs is a file-backed key/value store. The file is read once at startup;
// every write replaces it atomically.
type Prefs struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// Open loads the store at path. A missing file yields an empty store.
func Open(path string) (*Prefs, error) {
	p := &Prefs{
		path: path,
		data: make(map[string]json.RawMessage),
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &p.data); err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", path, err)
	}
	return p, nil
}

// LastLocation returns the persisted last resolved location.
func (p *Prefs) LastLocation() (weather.GeoLocation, error) {
	p.mu.Lock()
	raw, ok := p.data[keyLastLocation]
	p.mu.Unlock()

	if !ok {
		return weather.GeoLocation{}, ErrNotFound
	}
	var loc weather.GeoLocation
	if err := json.Unmarshal(raw, &loc); err != nil {
		return weather.GeoLocation{}, fmt.Errorf("store: corrupt %s: %w", keyLastLocation, err)
	}
	return loc, nil
}

// SetLastLocation persists loc; called on every successful resolution.
func (p *Prefs) SetLastLocation(loc weather.GeoLocation) error {
	raw, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	return p.set(keyLastLocation, raw)
}

// MotionEnabled reports whether ambient motion effects are allowed. The flag
// records an opt-out, so an unset key means enabled.
func (p *Prefs) MotionEnabled() bool {
	p.mu.Lock()
	raw, ok := p.data[keyMotion]
	p.mu.Unlock()

	if !ok {
		return true
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	return v != "off"
}

// SetMotionEnabled records the user's ambient-motion preference.
func (p *Prefs) SetMotionEnabled(enabled bool) error {
	v := "on"
	if !enabled {
		v = "off"
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.set(keyMotion, raw)
}

func (p *Prefs) set(key string, raw json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.data[key] = raw
	return p.flushLocked()
}

// flushLocked writes the whole store to a temp file and renames it over the
// old one, so readers never observe a partial write.
func (p *Prefs) flushLocked() error {
	out, err := json.MarshalIndent(p.data, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, ".prefs-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, p.path)
}
