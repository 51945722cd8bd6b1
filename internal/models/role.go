package models

import "gorm.io/gorm"

// Role represents an access role assignable to users (e.g. admin, customer).
type Role struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string `json:"name" gorm:"uniqueIndex;type:varchar(50)" validate:"required,min=3,max=50"`
	Description string `json:"description" validate:"omitempty,max=255"`
	gorm.Model         // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
