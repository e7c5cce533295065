package reconcile

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Status is the lifecycle state of a conflict.
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// Strategy selects how a conflict is resolved.
type Strategy string

const (
	// KeepInternal leaves the canonical value untouched.
	KeepInternal Strategy = "keep_internal"
	// ApplySource writes one source's observed value into the canonical entity.
	ApplySource Strategy = "apply_source"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == KeepInternal || s == ApplySource
}

// InternalSource names the canonical value inside ConflictingSources.
const InternalSource = "internal"

// ConflictSource is one source's observation of the disputed field.
type ConflictSource struct {
	Source     string    `json:"source"`
	Value      any       `json:"value"`
	DetectedAt time.Time `json:"detectedAt"`
}

// Conflict records a disagreement between sources about one field of one entity.
// At most one open conflict exists per (EntityType, EntityID, FieldName).
type Conflict struct {
	// ID is the conflict's UUID.
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	// EntityType is the kind of entity in dispute, e.g. "room".
	EntityType string `gorm:"type:varchar(32);not null;index:idx_conflict_subject,priority:1" json:"entityType"`

	// EntityID identifies the canonical entity.
	EntityID string `gorm:"type:varchar(36);not null;index:idx_conflict_subject,priority:2" json:"entityId"`

	// FieldName is the disputed field.
	FieldName string `gorm:"type:varchar(64);not null;index:idx_conflict_subject,priority:3" json:"fieldName"`

	// ConflictingSources holds one entry per source, the internal value first.
	ConflictingSources datatypes.JSONSlice[ConflictSource] `json:"conflictingSources"`

	Status     Status    `gorm:"type:varchar(16);not null;default:open;index" json:"status"`
	Resolution *Strategy `gorm:"type:varchar(16)" json:"resolution,omitempty"`

	DetectedAt time.Time  `gorm:"not null;index" json:"detectedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// TableName overrides the default table name.
func (Conflict) TableName() string {
	return "mapping_conflicts"
}

// BeforeCreate assigns a UUID when none is set.
func (c *Conflict) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// SourceValue returns the value recorded for source.
func (c *Conflict) SourceValue(source string) (any, bool) {
	for _, s := range c.ConflictingSources {
		if s.Source == source {
			return s.Value, true
		}
	}
	return nil, false
}

// upsertSource replaces the entry for src.Source or appends it.
func (c *Conflict) upsertSource(src ConflictSource) {
	for i := range c.ConflictingSources {
		if c.ConflictingSources[i].Source == src.Source {
			c.ConflictingSources[i] = src
			return
		}
	}
	c.ConflictingSources = append(c.ConflictingSources, src)
}
