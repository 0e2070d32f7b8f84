package background

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hytech-racing/listings-dashboard/internal/dataset"
	"github.com/hytech-racing/listings-dashboard/internal/logging"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const queueSize = 100

var ErrQueueFull = errors.New("upload queue is full")

// FileJobProcessor does the actual work for an uploaded file
type FileJobProcessor interface {
	Process(ctx context.Context, fp *FileProcessor, job *FileJob) error
}

type queuedJob struct {
	job       *FileJob
	processor FileJobProcessor
}

type FileProcessor struct {
	uploadDir               string
	queueChan               chan queuedJob
	stopChan                chan struct{}
	stopOnce                sync.Once
	processingWg            sync.WaitGroup
	activelyProcessing      bool
	mu                      sync.RWMutex
	jobs                    map[string]*FileJob
	MiddlewareEstimatedSize atomic.Int64
	TotalSize               atomic.Int64
	maxTotalSize            int64
	logger                  *logging.Logger
}

type FileJob struct {
	ID        string              `json:"id"`
	Filename  string              `json:"filename"`
	Size      int64               `json:"size"`
	Status    string              `json:"status"`
	Error     string              `json:"error,omitempty"`
	FileHash  string              `json:"file_hash,omitempty"`
	Report    *dataset.LoadReport `json:"report,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	FilePath  string              `json:"-"`
}

func NewFileProcessor(uploadDir string, maxTotalSize int64, logger *logging.Logger) (*FileProcessor, error) {
	err := os.MkdirAll(uploadDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if logger == nil {
		logger = logging.NewLogger(io.Discard, 0, "")
	}

	fp := &FileProcessor{
		uploadDir:    uploadDir,
		queueChan:    make(chan queuedJob, queueSize),
		stopChan:     make(chan struct{}),
		jobs:         make(map[string]*FileJob),
		maxTotalSize: maxTotalSize,
		logger:       logger,
	}

	totalSize, err := dirSize(uploadDir)
	if err != nil {
		return nil, err
	}

	fp.TotalSize.Store(totalSize)
	fp.MiddlewareEstimatedSize.Store(totalSize)
	return fp, nil
}

// EnqueueFile copies an uploaded file into the upload directory and queues
// it for processor
func (fp *FileProcessor) EnqueueFile(fileHeader *multipart.FileHeader, processor FileJobProcessor) (*FileJob, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	id := uuid.NewString()
	now := time.Now()
	job := &FileJob{
		ID:        id,
		Filename:  filepath.Base(fileHeader.Filename),
		Size:      fileHeader.Size,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		FilePath:  filepath.Join(fp.uploadDir, fmt.Sprintf("%s_%s", id, filepath.Base(fileHeader.Filename))),
	}

	dst, err := os.Create(job.FilePath)
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		os.Remove(job.FilePath)
		return nil, err
	}

	fp.mu.Lock()
	fp.jobs[job.ID] = job
	fp.mu.Unlock()

	select {
	case fp.queueChan <- queuedJob{job: job, processor: processor}:
	default:
		os.Remove(job.FilePath)
		fp.mu.Lock()
		delete(fp.jobs, job.ID)
		fp.mu.Unlock()
		return nil, ErrQueueFull
	}

	fp.TotalSize.Add(job.Size)
	fp.logger.Infof("job put in queue, %s", job.ID)

	snapshot := *job
	return &snapshot, nil
}

// Job returns a copy of the job with id
func (fp *FileProcessor) Job(id string) (FileJob, bool) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	job, ok := fp.jobs[id]
	if !ok {
		return FileJob{}, false
	}
	return *job, true
}

func (fp *FileProcessor) jobQueueListener(ctx context.Context) {
	defer fp.processingWg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fp.stopChan:
			return
		case queued := <-fp.queueChan:
			// Only one file is processed at a time to save resources
			fp.runJob(ctx, queued)
		}
	}
}

func (fp *FileProcessor) runJob(ctx context.Context, queued queuedJob) {
	job := queued.job
	fp.logger.Infof("Starting job %v", job.ID)

	fp.setCurrentlyProcessing(true)
	fp.updateJobStatus(job, StatusProcessing, "")
	defer fp.setCurrentlyProcessing(false)
	defer fp.releaseFile(job)

	if err := queued.processor.Process(ctx, fp, job); err != nil {
		fp.logger.Errorf("Failed to process file %s: %v", job.Filename, err)
		fp.updateJobStatus(job, StatusFailed, err.Error())
		return
	}

	fp.updateJobStatus(job, StatusCompleted, "")
	fp.logger.Infof("Completed job %v", job.ID)
}

// releaseFile removes the uploaded file once its job is done and gives its
// size back to the upload budget
func (fp *FileProcessor) releaseFile(job *FileJob) {
	if err := os.Remove(job.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		fp.logger.Warnf("failed to remove processed file %s: %v", job.FilePath, err)
	}

	fp.TotalSize.Add(-job.Size)
	fp.MiddlewareEstimatedSize.Add(-job.Size)
}

func (fp *FileProcessor) updateJobStatus(job *FileJob, status string, message string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	job.Status = status
	job.Error = message
	job.UpdatedAt = time.Now()
}

func (fp *FileProcessor) setJobReport(job *FileJob, report dataset.LoadReport) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	job.Report = &report
}

func (fp *FileProcessor) setJobHash(job *FileJob, hash string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	job.FileHash = hash
}

func (fp *FileProcessor) setCurrentlyProcessing(flag bool) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.activelyProcessing = flag
}

// ActivelyProcessing reports whether a job is running right now
func (fp *FileProcessor) ActivelyProcessing() bool {
	fp.mu.RLock()
	defer fp.mu.RUnlock()
	return fp.activelyProcessing
}

func (fp *FileProcessor) Start(ctx context.Context) {
	fp.processingWg.Add(2)
	go fp.jobQueueListener(ctx)
	go fp.syncTotalSize(ctx, time.Minute)
}

func (fp *FileProcessor) Stop() {
	fp.stopOnce.Do(func() {
		close(fp.stopChan)
	})
	fp.processingWg.Wait()
}

func (fp *FileProcessor) MaxTotalSize() int64 {
	return fp.maxTotalSize
}

// syncTotalSize periodically corrects the middleware estimate, which can
// drift when requests are rejected after the middleware counted them
func (fp *FileProcessor) syncTotalSize(ctx context.Context, interval time.Duration) {
	defer fp.processingWg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fp.stopChan:
			return
		case <-ticker.C:
			fp.MiddlewareEstimatedSize.Store(fp.TotalSize.Load())
		}
	}
}

func dirSize(dir string) (int64, error) {
	var totalSize int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	return totalSize, err
}
