package background

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hytech-racing/listings-dashboard/internal/dataset"
	"github.com/hytech-racing/listings-dashboard/internal/utils"
)

var ErrNoListings = errors.New("uploaded file has no valid listings")

// ObjectWriter archives uploaded datasets, implemented by the S3 repository
type ObjectWriter interface {
	WriteObjectReader(ctx context.Context, reader io.Reader, objectName string) error
	ObjectExists(ctx context.Context, objectPath string) (bool, error)
	Bucket() string
}

// DatasetJobProcessor parses an uploaded CSV and swaps it in as the
// dashboard's dataset
type DatasetJobProcessor struct {
	store   *dataset.Store
	archive ObjectWriter
}

// NewDatasetJobProcessor creates a processor for store. archive may be nil,
// in which case uploads are not kept once processed.
func NewDatasetJobProcessor(store *dataset.Store, archive ObjectWriter) *DatasetJobProcessor {
	return &DatasetJobProcessor{
		store:   store,
		archive: archive,
	}
}

func (p *DatasetJobProcessor) Process(ctx context.Context, fp *FileProcessor, job *FileJob) error {
	file, err := os.Open(job.FilePath)
	if err != nil {
		return fmt.Errorf("could not open uploaded file: %w", err)
	}
	defer file.Close()

	frame, report, err := dataset.Load(file)
	if err != nil {
		return err
	}
	fp.setJobReport(job, report)

	if frame.Len() == 0 {
		return ErrNoListings
	}

	hash, err := utils.CreateFileHash(file)
	if err != nil {
		return fmt.Errorf("could not hash uploaded file: %w", err)
	}
	fp.setJobHash(job, hash)

	source := "upload:" + job.Filename
	if p.archive != nil {
		// archived datasets are named by content so re-uploads are not stored twice
		objectName := fmt.Sprintf("datasets/%s.csv", hash)
		exists, err := p.archive.ObjectExists(ctx, objectName)
		if err != nil {
			return fmt.Errorf("could not check dataset archive: %w", err)
		}

		if !exists {
			if err := p.archive.WriteObjectReader(ctx, file, objectName); err != nil {
				return fmt.Errorf("could not archive dataset: %w", err)
			}
		}
		source = fmt.Sprintf("s3://%s/%s", p.archive.Bucket(), objectName)
	}

	p.store.Replace(frame, report, source)
	return nil
}
