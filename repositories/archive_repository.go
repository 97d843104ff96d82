package repositories

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/WilliamAGH/searchai/domain"
)

// ArchivedResult is a row recording the outcome of one scraped URL, kept
// for offline analysis. Content itself stays in the context store; only
// its size is archived.
type ArchivedResult struct {
	ID          uint   `gorm:"primaryKey"`
	ContextID   string `gorm:"index"`
	Link        string
	Status      string
	ResultIndex int
	TokenCount  int
	ContentSize int
	Error       string
	CreatedAt   time.Time
}

type ArchiveRepository interface {
	SaveResults(contextID string, results []domain.ScrapeResult) error
}

type PostgresArchiveRepository struct {
	db        *gorm.DB
	batchSize int
}

func NewArchiveRepository(db *gorm.DB, batchSize int) *PostgresArchiveRepository {
	if batchSize <= 0 {
		batchSize = 100 // Default
	}
	return &PostgresArchiveRepository{
		db:        db,
		batchSize: batchSize,
	}
}

func (repo *PostgresArchiveRepository) SaveResults(contextID string, results []domain.ScrapeResult) error {
	if len(results) == 0 {
		return nil
	}

	rows := make([]ArchivedResult, 0, len(results))
	for _, r := range results {
		rows = append(rows, ArchivedResult{
			ContextID:   contextID,
			Link:        r.Link,
			Status:      r.Status,
			ResultIndex: r.Index,
			TokenCount:  r.TokenCount,
			ContentSize: len(r.Content),
			Error:       r.Error,
		})
	}

	if err := repo.db.CreateInBatches(rows, repo.batchSize).Error; err != nil {
		return fmt.Errorf("failed to archive %d results for context %s: %w", len(results), contextID, err)
	}
	return nil
}
