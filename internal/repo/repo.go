package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrDuplicateEmail = errors.New("email already in use")
	ErrNotFound       = errors.New("record not found")
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}
