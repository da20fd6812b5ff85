// Package data carries the embedded catalog of known smart card reader models.
package data

import (
	_ "embed"
	"encoding/json"
	"strings"
	"sync"
)

// KnownReader describes a reader model the agent has been tested against.
type KnownReader struct {
	// Match is the prefix the PC/SC reader name starts with. Reader names
	// carry slot and index suffixes that vary per host, so matching is on
	// the stable model prefix only.
	Match     string `json:"match"`
	Model     string `json:"model"`
	Vendor    string `json:"vendor"`
	Interface string `json:"interface"` // "contact", "contactless" or "dual"
	Notes     string `json:"notes,omitempty"`
}

//go:embed known_readers.json
var knownReadersJSON []byte

var (
	catalogOnce sync.Once
	catalog     []KnownReader
	catalogErr  error
)

func load() ([]KnownReader, error) {
	catalogOnce.Do(func() {
		var data struct {
			Readers []KnownReader `json:"readers"`
		}
		if err := json.Unmarshal(knownReadersJSON, &data); err != nil {
			catalogErr = err
			return
		}
		catalog = data.Readers
	})
	return catalog, catalogErr
}

// KnownReaders returns the full catalog of known reader models.
func KnownReaders() ([]KnownReader, error) {
	return load()
}

// Lookup finds the catalog entry matching a PC/SC reader name, if any.
func Lookup(readerName string) (KnownReader, bool) {
	readers, err := load()
	if err != nil {
		return KnownReader{}, false
	}
	for _, r := range readers {
		if strings.HasPrefix(readerName, r.Match) {
			return r, true
		}
	}
	return KnownReader{}, false
}
