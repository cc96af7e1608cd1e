package ingest

import (
	"errors"
	"sort"
	"sync"

	"github.com/propos4l/proposal-engine/internal/models"
)

// ErrDocumentNotFound indicates an unknown document id.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore is the in-process catalog of documents and their classified
// blocks. The worker writes, handlers read; deletion cascades to blocks so
// the vector index can be kept consistent by the caller.
type DocumentStore struct {
	mu     sync.RWMutex
	docs   map[string]*models.Document
	blocks map[string][]models.SemanticBlock // document id -> ordered blocks
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs:   make(map[string]*models.Document),
		blocks: make(map[string][]models.SemanticBlock),
	}
}

// SaveDocument inserts or replaces a document.
func (s *DocumentStore) SaveDocument(doc *models.Document) {
	cp := *doc
	s.mu.Lock()
	s.docs[doc.ID] = &cp
	s.mu.Unlock()
}

// SaveBlocks replaces the classified blocks of a document.
func (s *DocumentStore) SaveBlocks(documentID string, blocks []models.SemanticBlock) {
	cp := make([]models.SemanticBlock, len(blocks))
	copy(cp, blocks)
	s.mu.Lock()
	s.blocks[documentID] = cp
	s.mu.Unlock()
}

// Document returns a copy of one document.
func (s *DocumentStore) Document(id string) (*models.Document, error) {
	s.mu.RLock()
	doc, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrDocumentNotFound
	}
	cp := *doc
	return &cp, nil
}

// Blocks returns a copy of a document's blocks in position order.
func (s *DocumentStore) Blocks(documentID string) ([]models.SemanticBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.docs[documentID]; !ok {
		return nil, ErrDocumentNotFound
	}
	blocks := s.blocks[documentID]
	cp := make([]models.SemanticBlock, len(blocks))
	copy(cp, blocks)
	return cp, nil
}

// Block finds one block by its own id.
func (s *DocumentStore) Block(blockID string) (*models.SemanticBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, blocks := range s.blocks {
		for i := range blocks {
			if blocks[i].ID == blockID {
				cp := blocks[i]
				return &cp, nil
			}
		}
	}
	return nil, ErrDocumentNotFound
}

// List returns every document ordered by upload time, newest first.
func (s *DocumentStore) List() []models.Document {
	s.mu.RLock()
	out := make([]models.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, *doc)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Delete removes a document and returns the ids of its blocks so the caller
// can purge dependent state.
func (s *DocumentStore) Delete(id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return nil, ErrDocumentNotFound
	}
	blockIDs := make([]string, 0, len(s.blocks[id]))
	for _, b := range s.blocks[id] {
		blockIDs = append(blockIDs, b.ID)
	}
	delete(s.docs, id)
	delete(s.blocks, id)
	return blockIDs, nil
}

// SetStatus updates a document's processing status.
func (s *DocumentStore) SetStatus(id string, status models.ProcessingStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return ErrDocumentNotFound
	}
	doc.Status = status
	doc.Error = errMsg
	return nil
}
