package docstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"santiye/internal/events"
)

type batchOp struct {
	op         string
	collection string
	id         string
	fields     Document
}

// WriteBatch queues writes for one atomic commit. All operations are
// applied in a single transaction; any rule violation or storage error
// rolls back the whole batch.
type WriteBatch struct {
	store *Store
	auth  AuthContext
	ops   []batchOp
}

func (s *Store) NewBatch(auth AuthContext) *WriteBatch {
	return &WriteBatch{store: s, auth: auth}
}

// Create queues an insert and returns the key the document will get.
func (b *WriteBatch) Create(collection string, fields Document) string {
	id := uuid.NewString()
	b.ops = append(b.ops, batchOp{op: events.OpCreate, collection: collection, id: id, fields: fields})
	return id
}

func (b *WriteBatch) Update(collection, id string, fields Document) {
	b.ops = append(b.ops, batchOp{op: events.OpUpdate, collection: collection, id: id, fields: fields})
}

func (b *WriteBatch) Delete(collection, id string) {
	b.ops = append(b.ops, batchOp{op: events.OpDelete, collection: collection, id: id})
}

// Commit applies the batch atomically and notifies each touched
// collection once. The first denied operation aborts the batch with a
// published permission error.
func (b *WriteBatch) Commit(ctx context.Context) error {
	s := b.store
	now := time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range b.ops {
			switch op.op {
			case events.OpCreate:
				if !s.rules.allow(events.OpCreate, b.auth, op.collection, op.fields, nil) {
					return s.denied(events.OpCreate, op.collection, op.fields, b.auth)
				}
				data, err := encodeFields(op.fields)
				if err != nil {
					return err
				}
				if err := tx.Create(&docRow{
					Collection: op.collection,
					ID:         op.id,
					Data:       data,
					CreatedAt:  now,
					UpdatedAt:  now,
				}).Error; err != nil {
					return err
				}

			case events.OpUpdate:
				doc, err := loadForWrite(tx, op.collection, op.id)
				if err != nil {
					return err
				}
				if !s.rules.allow(events.OpUpdate, b.auth, op.collection, doc, nil) {
					return s.denied(events.OpUpdate, op.collection+"/"+op.id, op.fields, b.auth)
				}
				for k, v := range op.fields {
					if k == "id" {
						continue
					}
					doc[k] = v
				}
				data, err := encodeFields(doc)
				if err != nil {
					return err
				}
				if err := tx.Model(&docRow{}).
					Where("collection = ? AND id = ?", op.collection, op.id).
					Updates(map[string]any{"data": data, "updated_at": now}).Error; err != nil {
					return err
				}

			case events.OpDelete:
				doc, err := loadForWrite(tx, op.collection, op.id)
				if err != nil {
					return err
				}
				if !s.rules.allow(events.OpDelete, b.auth, op.collection, doc, nil) {
					return s.denied(events.OpDelete, op.collection+"/"+op.id, nil, b.auth)
				}
				if err := tx.
					Where("collection = ? AND id = ?", op.collection, op.id).
					Delete(&docRow{}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	touched := make(map[string]struct{})
	for _, op := range b.ops {
		if _, seen := touched[op.collection]; seen {
			continue
		}
		touched[op.collection] = struct{}{}
		s.notifier.changed(op.collection)
	}
	return nil
}

func loadForWrite(tx *gorm.DB, collection, id string) (Document, error) {
	var row docRow
	err := tx.Where("collection = ? AND id = ?", collection, id).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRow(row)
}
