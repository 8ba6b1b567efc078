// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package core holds the pieces every gorm repository shares: transaction
// propagation through the context, row counting and error translation.
package core

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BaseRepoImpl is embedded by each repository. It owns the *gorm.DB and the
// model used for table-wide operations.
//
//	type quotaRepoImpl struct {
//		core.BaseRepoImpl
//	}
//
// Repositories must issue queries through DB(ctx) so an enclosing Tx is honored.
type BaseRepoImpl struct {
	db    *gorm.DB
	model any
}

// NewBaseRepoImpl creates a BaseRepoImpl for model.
func NewBaseRepoImpl(db *gorm.DB, model any) BaseRepoImpl {
	return BaseRepoImpl{db: db, model: model}
}

// DB returns the transaction stored in ctx if there is one, otherwise the
// repository's own handle, bound to ctx either way.
func (b *BaseRepoImpl) DB(ctx context.Context) *gorm.DB {
	if tx, found := FromContext(ctx); found {
		return tx.WithContext(ctx)
	}
	return b.db.WithContext(ctx)
}

// Tx runs block inside a transaction carried by ctxTx. Returning an error rolls
// back. Nested calls reuse the outer transaction through savepoints.
func (b *BaseRepoImpl) Tx(ctx context.Context, block func(ctxTx context.Context) error) error {
	return TranslateError(b.DB(ctx).Transaction(func(tx *gorm.DB) error {
		return block(NewContext(ctx, tx))
	}))
}

// Count returns the number of rows in the table.
func (b *BaseRepoImpl) Count(ctx context.Context) (int, error) {
	var count int64
	err := b.DB(ctx).Model(b.model).Count(&count).Error
	return int(count), TranslateError(err)
}

// DeleteAll deletes all rows in the table.
func (b *BaseRepoImpl) DeleteAll(ctx context.Context) error {
	return TranslateError(b.DB(ctx).Where("1 = 1").Delete(b.model).Error)
}

// Upsert inserts it or replaces every column of the row with the same primary key.
func (b *BaseRepoImpl) Upsert(ctx context.Context, it any) error {
	return TranslateError(b.DB(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(it).Error)
}

type key int

var dbKey key

// NewContext returns a new Context that carries value db.
func NewContext(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey, db)
}

// FromContext returns the gorm.DB value stored in ctx, if any.
func FromContext(ctx context.Context) (*gorm.DB, bool) {
	db, ok := ctx.Value(dbKey).(*gorm.DB)
	return db, ok
}
