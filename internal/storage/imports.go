package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// InsertImport persists a finished import document.
func (s *Store) InsertImport(ctx context.Context, doc *ImportDocument) error {
	return s.ctx(ctx).Create(doc).Error
}

// FindImport fetches an import document by ID, or nil. The poll surface
// treats presence of the document as "completed".
func (s *Store) FindImport(ctx context.Context, importID string) (*ImportDocument, error) {
	var doc ImportDocument
	err := s.ctx(ctx).Where("import_id = ?", importID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find import %s: %w", importID, err)
	}
	return &doc, nil
}
