// Package service holds the post and user business rules.
package service

import "quill/internal/models"

// Actor identifies who is performing an operation.
type Actor struct {
	ID   string
	Role models.Role
}

// Messages for the inline ownership checks on post mutation.
const (
	MsgUpdateOwnPostsOnly = "Access denied. You can only update your own posts."
	MsgDeleteOwnPostsOnly = "Access denied. You can only delete your own posts."
)
