package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var ErrNotFound = errors.New("product not found")

// ValidationError carries every rejected field of a create/update request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid product: " + strings.Join(e.Problems, "; ")
}

// Store reads and writes the catalog file as one unit. Every mutation
// rewrites the whole document: backup first, write, verify by re-reading,
// restore the backup when either step fails. Concurrent writers from
// different processes are last-writer-wins, which the single-admin setup
// accepts.
type Store struct {
	path string

	mu      sync.Mutex
	cached  []Product
	modTime time.Time
	dirty   bool
}

func NewStore(path string) *Store {
	return &Store{path: path, dirty: true}
}

// load returns the parsed collection, re-reading the file only when its
// mtime changed or a write marked the cache dirty.
func (s *Store) load() ([]Product, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		// A missing file is an empty catalog, not an error: the first
		// Create call brings the file into existence.
		s.cached = nil
		s.dirty = true
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat catalog file: %w", err)
	}
	if !s.dirty && s.cached != nil && info.ModTime().Equal(s.modTime) {
		return s.cached, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	s.cached = products
	s.modTime = info.ModTime()
	s.dirty = false
	return products, nil
}

func (s *Store) List(search string, limit int) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.load()
	if err != nil {
		return nil, err
	}

	out := make([]Product, 0, len(products))
	needle := strings.ToLower(strings.TrimSpace(search))
	for _, p := range products {
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			continue
		}
		out = append(out, p)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Get(id int) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			p := products[i]
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(products), nil
}

func (s *Store) Create(in ProductInput) (*Product, error) {
	if problems := in.validate(); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.load()
	if err != nil {
		return nil, err
	}

	maxID := 0
	for _, p := range products {
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	product := Product{
		ID:          maxID + 1,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		ImagePath:   in.normalizedImagePath(),
	}

	if err := s.save(append(products, product)); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Store) Update(id int, in ProductInput) (*Product, error) {
	if problems := in.validate(); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.load()
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range products {
		if products[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotFound
	}

	next := make([]Product, len(products))
	copy(next, products)
	next[idx] = Product{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		ImagePath:   in.normalizedImagePath(),
	}

	if err := s.save(next); err != nil {
		return nil, err
	}
	p := next[idx]
	return &p, nil
}

func (s *Store) Delete(id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.load()
	if err != nil {
		return false, err
	}

	next := make([]Product, 0, len(products))
	found := false
	for _, p := range products {
		if p.ID == id {
			found = true
			continue
		}
		next = append(next, p)
	}
	if !found {
		return false, nil
	}
	if err := s.save(next); err != nil {
		return false, err
	}
	return true, nil
}

// save replaces the whole document. The previous contents are copied to a
// timestamped backup before writing; a failed write or an unparsable result
// restores the backup so the file is never left truncated.
func (s *Store) save(products []Product) error {
	for i, p := range products {
		if p.ID <= 0 {
			return fmt.Errorf("invalid product id at index %d", i)
		}
		if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Description) == "" {
			return fmt.Errorf("incomplete product at index %d", i)
		}
		if p.Price <= 0 {
			return fmt.Errorf("non-positive price at index %d", i)
		}
		if strings.TrimSpace(p.ImagePath) == "" {
			return fmt.Errorf("missing image path at index %d", i)
		}
	}

	data, err := json.MarshalIndent(products, "", "    ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	backup := s.path + ".backup." + time.Now().Format("2006-01-02_15-04-05")
	hadBackup := copyFile(s.path, backup) == nil

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		if hadBackup {
			if rerr := copyFile(backup, s.path); rerr != nil {
				return fmt.Errorf("write catalog: %w (backup restore failed: %v)", err, rerr)
			}
		}
		return fmt.Errorf("write catalog: %w", err)
	}

	// Verify the written document parses before trusting it.
	written, err := os.ReadFile(s.path)
	if err == nil {
		var check []Product
		err = json.Unmarshal(written, &check)
	}
	if err != nil {
		if hadBackup {
			if rerr := copyFile(backup, s.path); rerr != nil {
				return fmt.Errorf("verify catalog: %w (backup restore failed: %v)", err, rerr)
			}
		}
		return fmt.Errorf("verify catalog: %w", err)
	}

	s.dirty = true
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
