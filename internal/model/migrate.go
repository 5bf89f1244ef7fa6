package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LatestSchemaVersion is the version Migrate brings every store to.
const LatestSchemaVersion = 2

// legacyVoteRecord is the votes table as first shipped, before the active flag existed.
type legacyVoteRecord struct {
	ID        uint  `gorm:"primaryKey;autoIncrement"`
	Upvotes   int64 `gorm:"not null;default:0"`
	Downvotes int64 `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (legacyVoteRecord) TableName() string { return "votes" }

// Migration is one forward-only schema step. Up must tolerate being rerun.
type Migration struct {
	Version int
	Name    string
	Up      func(tx *gorm.DB) error
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create votes table",
		Up: func(tx *gorm.DB) error {
			if tx.Migrator().HasTable(&legacyVoteRecord{}) {
				return nil
			}
			return tx.Migrator().CreateTable(&legacyVoteRecord{})
		},
	},
	{
		Version: 2,
		Name:    "add votes.is_voting_active",
		Up: func(tx *gorm.DB) error {
			if !tx.Migrator().HasColumn(&VoteRecord{}, "IsVotingActive") {
				if err := tx.Migrator().AddColumn(&VoteRecord{}, "IsVotingActive"); err != nil {
					return err
				}
			}
			// Rows written by older builds may carry NULL if the column was added by hand.
			return tx.Model(&VoteRecord{}).
				Where("is_voting_active IS NULL").
				UpdateColumn("is_voting_active", true).
				Error
		},
	},
}

// SchemaVersion reports the version a store is at. Stores created before
// schema_meta existed are identified by the shape of the votes table.
func SchemaVersion(db *gorm.DB) (int, error) {
	version, _, err := detectVersion(db)
	return version, err
}

func detectVersion(db *gorm.DB) (version int, recorded bool, err error) {
	m := db.Migrator()
	if m.HasTable(&SchemaMeta{}) {
		var metas []SchemaMeta
		if err := db.Where("id = ?", 1).Limit(1).Find(&metas).Error; err != nil {
			return 0, false, err
		}
		if len(metas) == 1 {
			return metas[0].SchemaVersion, true, nil
		}
	}

	switch {
	case !m.HasTable(&VoteRecord{}):
		return 0, false, nil
	case !m.HasColumn(&VoteRecord{}, "IsVotingActive"):
		return 1, false, nil
	default:
		return 2, false, nil
	}
}

func recordVersion(tx *gorm.DB, version int) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"schema_version", "updated_at"}),
	}).Create(&SchemaMeta{ID: 1, SchemaVersion: version}).Error
}

// Migrate applies every pending migration in order, each in its own
// transaction, and records the new version after each step.
func Migrate(db *gorm.DB) (applied []int, err error) {
	if err := db.AutoMigrate(&SchemaMeta{}); err != nil {
		return nil, fmt.Errorf("create schema_meta: %w", err)
	}

	current, recorded, err := detectVersion(db)
	if err != nil {
		return nil, fmt.Errorf("detect schema version: %w", err)
	}

	for _, mig := range migrations {
		if mig.Version <= current {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := mig.Up(tx); err != nil {
				return err
			}
			return recordVersion(tx, mig.Version)
		})
		if err != nil {
			return applied, fmt.Errorf("migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		applied = append(applied, mig.Version)
		current = mig.Version
	}

	// Stores that predate schema_meta but already had every column only need stamping.
	if len(applied) == 0 && !recorded {
		if err := recordVersion(db, current); err != nil {
			return nil, fmt.Errorf("record schema version: %w", err)
		}
	}
	return applied, nil
}
