// Package gorm provides GORM-based DAO implementations for SQL databases
// (SQLite, MySQL, PostgreSQL).
package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// baseGormDAO provides common GORM operations for all entity DAOs.
// It implements the generic BaseDAO interface for SQL databases.
type baseGormDAO[T any] struct {
	db *gorm.DB
}

// newBaseGormDAO creates a new base GORM DAO instance.
func newBaseGormDAO[T any](db *gorm.DB) *baseGormDAO[T] {
	return &baseGormDAO[T]{db: db}
}

// Create inserts a new entity into the database.
func (d *baseGormDAO[T]) Create(ctx context.Context, entity *T) error {
	return d.db.WithContext(ctx).Create(entity).Error
}

// FindByID retrieves an entity by its primary key.
// Returns nil, nil if the entity is not found.
func (d *baseGormDAO[T]) FindByID(ctx context.Context, id uint) (*T, error) {
	var entity T
	err := d.db.WithContext(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// Update modifies an existing entity in the database.
func (d *baseGormDAO[T]) Update(ctx context.Context, entity *T) error {
	return d.db.WithContext(ctx).Save(entity).Error
}

// Delete removes an entity by its ID.
func (d *baseGormDAO[T]) Delete(ctx context.Context, id uint) error {
	var entity T
	return d.db.WithContext(ctx).Delete(&entity, id).Error
}

// FindAll retrieves entities with pagination.
// Returns the entities, total count, and any error.
func (d *baseGormDAO[T]) FindAll(ctx context.Context, page, size int) ([]*T, int64, error) {
	var entities []*T
	var total int64
	offset := (page - 1) * size

	var model T
	if err := d.db.WithContext(ctx).Model(&model).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := d.db.WithContext(ctx).
		Offset(offset).
		Limit(size).
		Find(&entities).Error

	return entities, total, err
}

// Count returns the total number of entities.
func (d *baseGormDAO[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	var model T
	err := d.db.WithContext(ctx).Model(&model).Count(&count).Error
	return count, err
}

// ExistsBy checks if an entity exists by a field value.
func (d *baseGormDAO[T]) ExistsBy(ctx context.Context, field string, value any) (bool, error) {
	var count int64
	var model T
	err := d.db.WithContext(ctx).
		Model(&model).
		Where(fmt.Sprintf("%s = ?", field), value).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// getDB returns the underlying database handle.
func (d *baseGormDAO[T]) getDB() *gorm.DB {
	return d.db
}
