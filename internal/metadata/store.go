package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"fileslink/internal/fileutil"
	"fileslink/internal/services"
)

const mirrorMode = 0o644

// Store is the in-memory artifact collection with a durable JSON mirror.
type Store struct {
	path string

	mu    sync.RWMutex
	files map[string]Artifact
}

// New constructs an empty store mirrored at path. Call Load to install any
// existing mirror.
func New(path string) *Store {
	return &Store{path: path, files: make(map[string]Artifact)}
}

// Path returns the location of the durable mirror.
func (s *Store) Path() string {
	return s.path
}

// Load installs the durable mirror as the in-memory state. A missing mirror
// is a fresh start.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return services.Wrap(services.ErrStorageCommit, "metadata", "load", "read mirror", err)
	}

	var doc document
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return services.Wrap(services.ErrStorageCommit, "metadata", "load", "parse mirror", err)
		}
	}
	files := make(map[string]Artifact, len(doc.Files))
	for id, artifact := range doc.Files {
		if artifact.UniqueID == "" {
			artifact.UniqueID = id
		}
		files[id] = artifact
	}

	s.mu.Lock()
	s.files = files
	s.mu.Unlock()
	return nil
}

// Put inserts or replaces the record for a.UniqueID and rewrites the mirror.
func (s *Store) Put(a Artifact) error {
	if strings.TrimSpace(a.UniqueID) == "" {
		return services.Wrap(services.ErrValidation, "metadata", "put", "artifact has no identifier", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cloneLocked()
	next[a.UniqueID] = a
	if err := s.persist(next); err != nil {
		return services.Wrap(services.ErrStorageCommit, "metadata", "put", a.UniqueID, err)
	}
	s.files = next
	return nil
}

// Get returns the record for id.
func (s *Store) Get(id string) (Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.files[id]
	return a, ok
}

// List returns every record ordered by upload time (oldest first), ties
// broken by identifier.
func (s *Store) List() []Artifact {
	s.mu.RLock()
	out := make([]Artifact, 0, len(s.files))
	for _, a := range s.files {
		out = append(out, a)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt != out[j].UploadedAt {
			return out[i].UploadedAt < out[j].UploadedAt
		}
		return out[i].UniqueID < out[j].UniqueID
	})
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Delete removes the record for id and rewrites the mirror.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return services.Wrap(services.ErrNotFound, "metadata", "delete", fmt.Sprintf("file id %q", id), nil)
	}
	next := s.cloneLocked()
	delete(next, id)
	if err := s.persist(next); err != nil {
		return services.Wrap(services.ErrStorageCommit, "metadata", "delete", id, err)
	}
	s.files = next
	return nil
}

// Rename replaces the display name of id and returns the updated record.
func (s *Store) Rename(id, name string) (Artifact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Artifact{}, services.Wrap(services.ErrValidation, "metadata", "rename", "new name is empty", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.files[id]
	if !ok {
		return Artifact{}, services.Wrap(services.ErrNotFound, "metadata", "rename", fmt.Sprintf("file id %q", id), nil)
	}
	current.FileName = name
	next := s.cloneLocked()
	next[id] = current
	if err := s.persist(next); err != nil {
		return Artifact{}, services.Wrap(services.ErrStorageCommit, "metadata", "rename", id, err)
	}
	s.files = next
	return current, nil
}

func (s *Store) cloneLocked() map[string]Artifact {
	next := make(map[string]Artifact, len(s.files)+1)
	for id, a := range s.files {
		next[id] = a
	}
	return next
}

func (s *Store) persist(files map[string]Artifact) error {
	data, err := json.MarshalIndent(document{Files: files}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode mirror: %w", err)
	}
	return fileutil.WriteFileAtomic(s.path, data, mirrorMode)
}
