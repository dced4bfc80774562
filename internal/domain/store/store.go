// Package store defines the unit of work the application services run in.
package store

import (
	"context"

	"tutorflow/internal/domain/attendance"
	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/demo"
	"tutorflow/internal/domain/lead"
)

// UnitOfWork exposes repositories bound to one transaction. Reads made through
// a writable unit lock the rows they return until the unit ends.
type UnitOfWork interface {
	Leads() lead.Repository
	Demos() demo.Repository
	Classes() class.Repository
	Attendance() attendance.Repository
}

// Transactor runs fn atomically. If fn returns an error every write made
// through uow is rolled back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error
	// View runs fn without taking row locks; fn must not write.
	View(ctx context.Context, fn func(uow UnitOfWork) error) error
}
