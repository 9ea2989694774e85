package sql

import (
	"time"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
)

// BatchEntity maps proarc_batch.
type BatchEntity struct {
	ID        int64             `gorm:"column:id;primaryKey;autoIncrement"`
	Profile   string            `gorm:"column:profile"`
	Params    model.BatchParams `gorm:"column:params;type:text"`
	State     string            `gorm:"column:state"`
	Log       string            `gorm:"column:log"`
	Folder    string            `gorm:"column:folder"`
	UserID    int64             `gorm:"column:user_id"`
	Title     string            `gorm:"column:title"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime:false"`
	Version   int               `gorm:"column:version"`
}

func (BatchEntity) TableName() string { return "proarc_batch" }

// BatchItemEntity maps proarc_batch_item.
type BatchItemEntity struct {
	ID      int64  `gorm:"column:id;primaryKey;autoIncrement"`
	BatchID int64  `gorm:"column:batch_id"`
	PID     string `gorm:"column:pid"`
	File    string `gorm:"column:file"`
	Type    string `gorm:"column:type"`
	State   string `gorm:"column:state"`
	Log     string `gorm:"column:log"`
}

func (BatchItemEntity) TableName() string { return "proarc_batch_item" }

func fromDomainBatch(b *model.Batch) *BatchEntity {
	return &BatchEntity{
		ID:        b.ID,
		Profile:   string(b.Profile),
		Params:    b.Params,
		State:     string(b.State),
		Log:       b.Log,
		Folder:    b.Folder,
		UserID:    b.UserID,
		Title:     b.Title,
		CreatedAt: b.Created,
		UpdatedAt: b.Timestamp,
		Version:   b.Version,
	}
}

func (e *BatchEntity) toDomain() *model.Batch {
	return &model.Batch{
		ID:        e.ID,
		Profile:   model.Profile(e.Profile),
		Params:    e.Params,
		State:     model.BatchState(e.State),
		Log:       e.Log,
		Folder:    e.Folder,
		UserID:    e.UserID,
		Title:     e.Title,
		Created:   e.CreatedAt,
		Timestamp: e.UpdatedAt,
		Version:   e.Version,
	}
}

func fromDomainItem(i *model.BatchItem) *BatchItemEntity {
	return &BatchItemEntity{
		ID:      i.ID,
		BatchID: i.BatchID,
		PID:     i.PID,
		File:    i.File,
		Type:    string(i.Type),
		State:   string(i.State),
		Log:     i.Log,
	}
}

func (e *BatchItemEntity) toDomain() *model.BatchItem {
	return &model.BatchItem{
		ID:      e.ID,
		BatchID: e.BatchID,
		PID:     e.PID,
		File:    e.File,
		Type:    model.ItemType(e.Type),
		State:   model.ItemState(e.State),
		Log:     e.Log,
	}
}
