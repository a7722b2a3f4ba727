package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultOwnerField is the owner field consulted when a route does not name one.
const DefaultOwnerField = "author"

// Owned is implemented by resources whose mutation is restricted to an owner.
type Owned interface {
	// OwnerRef returns the canonical string form of the owner stored in field.
	OwnerRef(field string) (string, bool)
}

// Post represents a blog post.
type Post struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title      string     `gorm:"not null" json:"title"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	AuthorID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_posts_author_created,priority:1" json:"author_id"`
	Author     *User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	CategoryID *uuid.UUID `gorm:"type:uuid;index:idx_posts_category_published,priority:1" json:"category_id,omitempty"`
	Slug       string     `gorm:"uniqueIndex;not null" json:"slug"`
	Published  bool       `gorm:"not null;default:false;index:idx_posts_category_published,priority:2" json:"published"`
	Views      int        `gorm:"not null;default:0" json:"views"`
	Tags       []string   `gorm:"serializer:json;type:text" json:"tags"`
	CreatedAt  time.Time  `gorm:"index:idx_posts_author_created,priority:2" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// BeforeCreate assigns an identifier.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return nil
}

// OwnerRef implements Owned. Posts are owned through their author.
func (p *Post) OwnerRef(field string) (string, bool) {
	switch field {
	case DefaultOwnerField, "author_id":
		return p.AuthorID.String(), true
	default:
		return "", false
	}
}
