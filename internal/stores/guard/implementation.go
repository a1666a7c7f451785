package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/ethanbaker/credlink/pkg/guard"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLGuard keeps request ids in a SQL table so every replica of the API shares them.
// The unique index on request_id makes TryMark atomic across processes
type SQLGuard struct {
	db     *gorm.DB
	policy guard.Policy
	now    func() time.Time
}

var _ guard.Guard = (*SQLGuard)(nil)
var _ guard.Sweepable = (*SQLGuard)(nil)

// NewMySQLGuard creates a guard backed by MySQL
func NewMySQLGuard(databaseURL string, policy guard.Policy) (*SQLGuard, error) {
	return NewSQLGuard(mysql.Open(databaseURL), policy)
}

// NewSQLGuard creates a guard on any GORM dialector
func NewSQLGuard(dialector gorm.Dialector, policy guard.Policy) (*SQLGuard, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	g := &SQLGuard{
		db:     db,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}

	// Auto-migrate tables
	if err := g.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return g, nil
}

// migrate creates or updates the required database tables
func (g *SQLGuard) migrate() error {
	return g.db.AutoMigrate(&RequestModel{})
}

// TryMark inserts the request id, doing nothing when it already exists
func (g *SQLGuard) TryMark(ctx context.Context, requestID string) (bool, error) {
	if requestID == "" {
		return false, fmt.Errorf("request_id cannot be empty")
	}

	db := g.db.WithContext(ctx)
	now := g.now()

	// An expired mark for this id no longer counts
	if g.policy.TTL > 0 {
		if err := db.Where("request_id = ? AND created_at <= ?", requestID, now.Add(-g.policy.TTL)).Delete(&RequestModel{}).Error; err != nil {
			return false, fmt.Errorf("failed to clear expired request id: %w", err)
		}
	}

	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&RequestModel{
		CreatedAt: now,
		RequestID: requestID,
	})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark request id: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

// Unmark deletes the request id
func (g *SQLGuard) Unmark(ctx context.Context, requestID string) error {
	if requestID == "" {
		return fmt.Errorf("request_id cannot be empty")
	}

	if err := g.db.WithContext(ctx).Where("request_id = ?", requestID).Delete(&RequestModel{}).Error; err != nil {
		return fmt.Errorf("failed to unmark request id: %w", err)
	}
	return nil
}

// IsMarked checks whether an unexpired row exists for the request id
func (g *SQLGuard) IsMarked(ctx context.Context, requestID string) (bool, error) {
	if requestID == "" {
		return false, nil
	}

	query := g.db.WithContext(ctx).Model(&RequestModel{}).Where("request_id = ?", requestID)
	if g.policy.TTL > 0 {
		query = query.Where("created_at > ?", g.now().Add(-g.policy.TTL))
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check request id: %w", err)
	}
	return count > 0, nil
}

// Sweep deletes expired rows
func (g *SQLGuard) Sweep(ctx context.Context) (int, error) {
	if g.policy.TTL <= 0 {
		return 0, nil
	}

	result := g.db.WithContext(ctx).Where("created_at <= ?", g.now().Add(-g.policy.TTL)).Delete(&RequestModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to sweep request ids: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

// Close closes the database connection
func (g *SQLGuard) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}
	return sqlDB.Close()
}
