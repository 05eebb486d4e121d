package docstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"santiye/internal/events"
)

type docRow struct {
	Collection string    `gorm:"column:collection;primaryKey;size:64"`
	ID         string    `gorm:"column:id;primaryKey;size:64"`
	Data       string    `gorm:"column:data"`
	CreatedAt  time.Time `gorm:"column:created_at;index"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (docRow) TableName() string { return "documents" }

// Store is a collection/document database over GORM: opaque string keys
// assigned on creation, equality-filter queries, atomic write batches and
// per-query live listeners. Every operation is checked against the
// configured access rules; denied operations return a structured
// permission error that is also published on the event bus.
type Store struct {
	db       *gorm.DB
	bus      *events.Bus
	rules    Rules
	notifier *notifier
}

// Open migrates the document table and returns a ready store.
func Open(db *gorm.DB, bus *events.Bus, rules Rules) (*Store, error) {
	if err := db.AutoMigrate(&docRow{}); err != nil {
		return nil, err
	}
	return &Store{
		db:       db,
		bus:      bus,
		rules:    rules,
		notifier: newNotifier(),
	}, nil
}

// Close tears down every open listener.
func (s *Store) Close() {
	s.notifier.close()
}

func (s *Store) denied(op, path string, resourceData any, auth AuthContext) error {
	pe := events.NewPermissionError(path, op, resourceData, auth)
	events.PublishPermissionError(s.bus, pe)
	return pe
}

func decodeRow(row docRow) (Document, error) {
	var d Document
	if err := json.Unmarshal([]byte(row.Data), &d); err != nil {
		return nil, err
	}
	d["id"] = row.ID
	return d, nil
}

func encodeFields(fields Document) (string, error) {
	clean := make(Document, len(fields))
	for k, v := range fields {
		if k == "id" {
			continue
		}
		clean[k] = v
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Get returns a single document, or ErrNotFound.
func (s *Store) Get(ctx context.Context, auth AuthContext, collection, id string) (Document, error) {
	var row docRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc, err := decodeRow(row)
	if err != nil {
		return nil, err
	}
	if !s.rules.allow(events.OpGet, auth, collection, doc, nil) {
		return nil, s.denied(events.OpGet, collection+"/"+id, nil, auth)
	}
	return doc, nil
}

// RunQuery evaluates q once and returns matching documents in insertion
// order, each with its key merged in under "id".
func (s *Store) RunQuery(ctx context.Context, auth AuthContext, q Query) ([]Document, error) {
	if !s.rules.allow(events.OpList, auth, q.Collection, nil, &q) {
		return nil, s.denied(events.OpList, q.Path(), nil, auth)
	}
	return s.runQueryUnchecked(ctx, q)
}

func (s *Store) runQueryUnchecked(ctx context.Context, q Query) ([]Document, error) {
	var rows []docRow
	err := s.db.WithContext(ctx).
		Where("collection = ?", q.Collection).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		if q.matches(doc) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Create inserts a new document and returns it with its assigned key.
func (s *Store) Create(ctx context.Context, auth AuthContext, collection string, fields Document) (Document, error) {
	if !s.rules.allow(events.OpCreate, auth, collection, fields, nil) {
		return nil, s.denied(events.OpCreate, collection, fields, auth)
	}

	data, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	row := docRow{
		Collection: collection,
		ID:         uuid.NewString(),
		Data:       data,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	s.notifier.changed(collection)

	doc, err := decodeRow(row)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Set writes a document under a caller-chosen key, creating or replacing
// it. Used by collections with natural keys (email lookups, monthly
// status cells).
func (s *Store) Set(ctx context.Context, auth AuthContext, collection, id string, fields Document) error {
	if !s.rules.allow(events.OpWrite, auth, collection, fields, nil) {
		return s.denied(events.OpWrite, collection+"/"+id, fields, auth)
	}

	data, err := encodeFields(fields)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing docRow
		lookup := tx.Where("collection = ? AND id = ?", collection, id).First(&existing)
		if lookup.Error == gorm.ErrRecordNotFound {
			return tx.Create(&docRow{
				Collection: collection,
				ID:         id,
				Data:       data,
				CreatedAt:  now,
				UpdatedAt:  now,
			}).Error
		}
		if lookup.Error != nil {
			return lookup.Error
		}
		return tx.Model(&docRow{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]any{"data": data, "updated_at": now}).Error
	})
	if err != nil {
		return err
	}
	s.notifier.changed(collection)
	return nil
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, auth AuthContext, collection, id string, fields Document) error {
	var row docRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	doc, err := decodeRow(row)
	if err != nil {
		return err
	}
	if !s.rules.allow(events.OpUpdate, auth, collection, doc, nil) {
		return s.denied(events.OpUpdate, collection+"/"+id, fields, auth)
	}

	for k, v := range fields {
		if k == "id" {
			continue
		}
		doc[k] = v
	}
	data, err := encodeFields(doc)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Model(&docRow{}).
		Where("collection = ? AND id = ?", collection, id).
		Updates(map[string]any{"data": data, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return err
	}
	s.notifier.changed(collection)
	return nil
}

// Delete removes a document. Deleting an absent document returns
// ErrNotFound.
func (s *Store) Delete(ctx context.Context, auth AuthContext, collection, id string) error {
	var row docRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	doc, err := decodeRow(row)
	if err != nil {
		return err
	}
	if !s.rules.allow(events.OpDelete, auth, collection, doc, nil) {
		return s.denied(events.OpDelete, collection+"/"+id, nil, auth)
	}

	err = s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&docRow{}).Error
	if err != nil {
		return err
	}
	s.notifier.changed(collection)
	return nil
}
