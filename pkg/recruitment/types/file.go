package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileInfo describes an uploaded file stored on disk. Deleted files keep their record with DeletedAt set.
type FileInfo struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Owner        EntityRef          `bson:"owner" json:"owner"`
	Filename     string             `bson:"filename" json:"filename"`
	OriginalName string             `bson:"originalName" json:"originalName"`
	MimeType     string             `bson:"mimeType" json:"mimeType"`
	Size         int64              `bson:"size" json:"size"`
	StorageURL   string             `bson:"storageUrl" json:"storageUrl"`
	UploadedBy   primitive.ObjectID `bson:"uploadedBy" json:"uploadedBy"`
	DeletedAt    *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (f FileInfo) IsDeleted() bool {
	return f.DeletedAt != nil
}
