package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job kinds understood by the indexing worker.
const (
	JobIndex       = "index"
	JobDelete      = "delete"
	JobBatchUpdate = "batch-update"
	JobReindexAll  = "reindex-all"
)

// ReindexFilter narrows a reindex-all job to a subset of the catalog.
type ReindexFilter struct {
	CategoryID string `json:"category_id,omitempty"`
	BrandID    string `json:"brand_id,omitempty"`
	Status     string `json:"status,omitempty"`
}

// IndexJob is a single unit of asynchronous index work. Jobs are serialized
// as JSON text records in the queue; the ID is their only durable identity.
type IndexJob struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	ProductID  string         `json:"product_id,omitempty"`
	ProductIDs []string       `json:"product_ids,omitempty"`
	Filter     *ReindexFilter `json:"filter,omitempty"`
	Attempts   int            `json:"attempts"`
	CreatedAt  time.Time      `json:"created_at"`
	LastError  string         `json:"last_error,omitempty"`
}

// NewIndexJob creates an index job for a single product.
func NewIndexJob(productID string) *IndexJob {
	return &IndexJob{
		ID:        uuid.New().String(),
		Kind:      JobIndex,
		ProductID: productID,
		CreatedAt: time.Now().UTC(),
	}
}

// NewDeleteJob creates a delete job for a single product.
func NewDeleteJob(productID string) *IndexJob {
	return &IndexJob{
		ID:        uuid.New().String(),
		Kind:      JobDelete,
		ProductID: productID,
		CreatedAt: time.Now().UTC(),
	}
}

// NewBatchUpdateJob creates a batch-update job for a set of products.
func NewBatchUpdateJob(productIDs []string) *IndexJob {
	return &IndexJob{
		ID:         uuid.New().String(),
		Kind:       JobBatchUpdate,
		ProductIDs: productIDs,
		CreatedAt:  time.Now().UTC(),
	}
}

// NewReindexAllJob creates a full-reindex job, optionally filtered.
func NewReindexAllJob(filter *ReindexFilter) *IndexJob {
	return &IndexJob{
		ID:        uuid.New().String(),
		Kind:      JobReindexAll,
		Filter:    filter,
		CreatedAt: time.Now().UTC(),
	}
}

// Marshal serializes the job to its queue wire format.
func (j *IndexJob) Marshal() (string, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return "", fmt.Errorf("marshal index job: %w", err)
	}
	return string(data), nil
}

// UnmarshalIndexJob parses a job from its queue wire format.
func UnmarshalIndexJob(raw string) (*IndexJob, error) {
	var job IndexJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("unmarshal index job: %w", err)
	}
	return &job, nil
}
