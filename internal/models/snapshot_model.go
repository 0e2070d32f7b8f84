package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FileModel struct {
	AwsBucket string `json:"aws_bucket" bson:"aws_bucket"`
	FilePath  string `json:"file_path" bson:"file_path"`
	FileName  string `json:"file_name" bson:"file_name"`
	SignedURL string `json:"signed_url,omitempty" bson:"-"`
}

// SnapshotModel records a set of rendered charts exported to S3
type SnapshotModel struct {
	Id            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SnapshotID    string             `json:"snapshot_id" bson:"snapshot_id"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	State         map[string]string  `json:"state" bson:"state"`
	DatasetSource string             `json:"dataset_source" bson:"dataset_source"`
	Files         []FileModel        `json:"files" bson:"files"`
}
