package models

import "time"

// BaseModel contains common fields for all locally persisted records
type BaseModel struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BatchTracking contains common fields for batch processing
type BatchTracking struct {
	BatchSize      int `json:"batchSize"`
	CurrentBatch   int `json:"currentBatch"`
	TotalBatches   int `json:"totalBatches"`
	TotalItems     int `json:"totalItems"`
	ProcessedItems int `json:"processedItems"`
}
