// Package gorm provides GORM model definitions for the application
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alchemorsel/recipediff/internal/domain/recipe"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RevisionModel represents the GORM model for recipe revisions
type RevisionModel struct {
	ID            uuid.UUID  `gorm:"type:char(36);primaryKey"`
	RecipeID      string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_recipe_revisions_number,priority:1"`
	Number        int        `gorm:"not null;uniqueIndex:idx_recipe_revisions_number,priority:2"`
	OwnerID       string     `gorm:"type:varchar(128);not null;index"`
	Recipe        RecipeJSON `gorm:"type:json;not null"`
	Modifications string     `gorm:"type:text"`
	Archived      bool       `gorm:"not null;default:false"`
	ArchivedAt    *time.Time `gorm:"index"`
	CreatedAt     time.Time  `gorm:"index"`
}

// RecipeJSON stores a recipe document in a JSON column
type RecipeJSON struct {
	*recipe.Recipe
}

// Scan implements the sql.Scanner interface
func (j *RecipeJSON) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		j.Recipe = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into RecipeJSON", value)
	}

	r, err := recipe.Parse(data)
	if err != nil {
		return err
	}
	j.Recipe = r
	return nil
}

// Value implements the driver.Valuer interface
func (j RecipeJSON) Value() (driver.Value, error) {
	if j.Recipe == nil {
		return "null", nil
	}
	data, err := json.Marshal(j.Recipe)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// BeforeCreate hook for RevisionModel
func (r *RevisionModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for RevisionModel
func (RevisionModel) TableName() string {
	return "recipe_revisions"
}

// Models returns every model managed by AutoMigrate
func Models() []interface{} {
	return []interface{}{&RevisionModel{}}
}
