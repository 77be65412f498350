package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Snapshot bundles the registries loaded from one pass over the static data
// files. Snapshots are immutable; Store.Reload swaps the active snapshot
// atomically so readers never observe a half-loaded state.
type Snapshot struct {
	Threats  *ThreatRegistry
	Venues   *VenueRegistry
	LoadedAt time.Time
}

// registryFile mirrors the on-disk registry JSON:
// {"wallets": {name: {...}}, "exchanges": {name: {...}}}
type registryFile struct {
	Wallets   map[string]WalletInfo   `json:"wallets"`
	Exchanges map[string]ExchangeInfo `json:"exchanges"`
}

// Load reads the registry and blacklist files and builds a Snapshot.
// A missing file is not an error: the corresponding registry loads empty,
// matching the fail-open posture of the verification core.
func Load(registryPath, blacklistPath string) (*Snapshot, error) {
	var reg registryFile
	if data, err := os.ReadFile(registryPath); err == nil {
		if err := json.Unmarshal(data, &reg); err != nil {
			return nil, fmt.Errorf("parse registry %s: %w", registryPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read registry %s: %w", registryPath, err)
	}

	var blacklist []BlacklistEntry
	if data, err := os.ReadFile(blacklistPath); err == nil {
		if err := json.Unmarshal(data, &blacklist); err != nil {
			return nil, fmt.Errorf("parse blacklist %s: %w", blacklistPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read blacklist %s: %w", blacklistPath, err)
	}

	snap := &Snapshot{
		Threats:  NewThreatRegistry(blacklist),
		Venues:   NewVenueRegistry(reg.Wallets, reg.Exchanges),
		LoadedAt: time.Now(),
	}

	log.Info().
		Int("wallets", snap.Venues.WalletCount()).
		Int("exchanges", snap.Venues.ExchangeCount()).
		Int("blacklist", snap.Threats.BlacklistSize()).
		Msg("registry: snapshot loaded")

	return snap, nil
}

// Store holds the active Snapshot behind an atomic pointer.
type Store struct {
	registryPath  string
	blacklistPath string
	current       atomic.Pointer[Snapshot]
}

// NewStore loads the initial snapshot and returns a Store serving it.
func NewStore(registryPath, blacklistPath string) (*Store, error) {
	snap, err := Load(registryPath, blacklistPath)
	if err != nil {
		return nil, err
	}
	s := &Store{registryPath: registryPath, blacklistPath: blacklistPath}
	s.current.Store(snap)
	return s, nil
}

// Current returns the active snapshot. Safe for concurrent use.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Reload re-reads the data files and atomically swaps the active snapshot.
// On failure the previous snapshot stays in place.
func (s *Store) Reload() error {
	snap, err := Load(s.registryPath, s.blacklistPath)
	if err != nil {
		log.Error().Err(err).Msg("registry: reload failed, keeping previous snapshot")
		return err
	}
	s.current.Store(snap)
	return nil
}
