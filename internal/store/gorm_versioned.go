package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"cudorms-backend/internal/model"
)

// updateVersioned runs the optimistic read-modify-write cycle for one document.
// The write is conditioned on the version that was read; a miss means another
// writer got there first, so the document is reloaded and mutate re-applied.
// Columns in counters are maintained by atomic increments that do not bump the
// version, so they are never written here.
func updateVersioned[T any, P interface {
	*T
	model.Versioned
}](ctx context.Context, db *gorm.DB, id string, mutate func(P) error, counters ...string) (P, error) {
	omit := append([]string{"created_at"}, counters...)

	for attempt := 0; attempt < MaxUpdateAttempts; attempt++ {
		doc := P(new(T))
		if err := db.WithContext(ctx).First(doc, "id = ?", id).Error; err != nil {
			return nil, translate(err)
		}

		version := doc.DocVersion()
		if err := mutate(doc); err != nil {
			return nil, err
		}
		doc.NextVersion(time.Now())

		res := db.WithContext(ctx).Model(doc).
			Where("version = ?", version).
			Select("*").Omit(omit...).
			Updates(doc)
		if res.Error != nil {
			return nil, translate(res.Error)
		}
		if res.RowsAffected == 1 {
			return doc, nil
		}
	}
	return nil, ErrVersionConflict
}
