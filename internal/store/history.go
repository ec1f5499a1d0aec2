package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	historyFileName = "transcript_history.json"
	// MaxHistoryEntries bounds transcript_history.json; once it is exceeded
	// the oldest entries are dropped (see SPEC_FULL.md §3).
	MaxHistoryEntries = 200
)

// HistoryEntry is one saved transcript, newest entries sorted first.
type HistoryEntry struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Timestamp  string   `json:"timestamp"`
	DurationS  *float64 `json:"durationSecs,omitempty"`
	Language   *string  `json:"language,omitempty"`
	Provider   string   `json:"provider"`
}

func NewHistoryEntry(text string, durationS *float64, language *string, provider string) HistoryEntry {
	return HistoryEntry{
		ID:        uuid.NewString(),
		Text:      text,
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		DurationS: durationS,
		Language:  normalizeOptionalString(language),
		Provider:  strings.TrimSpace(provider),
	}
}

func validateHistoryEntry(e HistoryEntry) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("history entry id must not be empty")
	}
	if strings.TrimSpace(e.Text) == "" {
		return fmt.Errorf("history entry text must not be empty")
	}
	return nil
}

// HistoryStore persists transcript_history.json, newest-first, capped at
// MaxHistoryEntries.
type HistoryStore struct {
	path string
	mu   sync.Mutex
}

func NewHistoryStore(appDataDir string) (*HistoryStore, error) {
	path := filepath.Join(appDataDir, historyFileName)
	if err := ensureFileExists(path, []byte("[]")); err != nil {
		return nil, err
	}
	return &HistoryStore{path: path}, nil
}

func (s *HistoryStore) AddEntry(entry HistoryEntry) error {
	if err := validateHistoryEntry(entry); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readEntries()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	sortHistoryNewestFirst(entries)
	if len(entries) > MaxHistoryEntries {
		entries = entries[:MaxHistoryEntries]
	}
	return s.writeEntries(entries)
}

func (s *HistoryStore) ListEntries(limit, offset int) ([]HistoryEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readEntries()
	if err != nil {
		return nil, err
	}
	sortHistoryNewestFirst(entries)

	if offset >= len(entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end], nil
}

func (s *HistoryStore) GetEntry(id string) (*HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readEntries()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, nil
}

func (s *HistoryStore) DeleteEntry(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readEntries()
	if err != nil {
		return false, err
	}
	originalLen := len(entries)
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == originalLen {
		return false, nil
	}
	return true, s.writeEntries(kept)
}

func (s *HistoryStore) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeEntries(nil)
}

func sortHistoryNewestFirst(entries []HistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
}

func (s *HistoryStore) readEntries() ([]HistoryEntry, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read history file %q: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse history file %q: %w", s.path, err)
	}
	return entries, nil
}

func (s *HistoryStore) writeEntries(entries []HistoryEntry) error {
	if entries == nil {
		entries = []HistoryEntry{}
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize history entries: %w", err)
	}
	return writeAtomicFile(s.path, raw)
}
