package inmemdb

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/class"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/enrollment"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/student"
)

type (
	tables struct {
		years       map[int]schoolyear.SchoolYear
		classes     map[int]class.Class
		students    map[int]student.Student
		enrollments map[int]enrollment.Enrollment
		pkCount     int
	}

	fault struct {
		after int
		err   error
	}

	// DB is an in-process enrollment store. Transactions are serialized and rolled back by
	// restoring a snapshot of every table taken when they begin.
	DB struct {
		mu   sync.RWMutex
		txMu sync.Mutex
		t    tables

		faults    map[string]*fault
		beginHook func()
	}
)

// txExecutor marks repository calls made inside InTx. Its methods are never called.
type txExecutor struct {
	core.DBExecutor
}

var errDuplicateKey = errors.New("duplicate key value violates unique constraint")

var _ core.Transactor = (*DB)(nil)

func Open() *DB {
	return &DB{t: newTables(), faults: make(map[string]*fault)}
}

func newTables() tables {
	return tables{
		years:       make(map[int]schoolyear.SchoolYear),
		classes:     make(map[int]class.Class),
		students:    make(map[int]student.Student),
		enrollments: make(map[int]enrollment.Enrollment),
	}
}

func (t tables) clone() tables {
	c := newTables()
	c.pkCount = t.pkCount
	for k, v := range t.years {
		c.years[k] = v
	}
	for k, v := range t.classes {
		c.classes[k] = v
	}
	for k, v := range t.students {
		c.students[k] = v
	}
	for k, v := range t.enrollments {
		c.enrollments[k] = v
	}
	return c
}

func (db *DB) nextPK() int {
	db.t.pkCount++
	return db.t.pkCount
}

// writeLock takes the table write lock. Writes made outside a transaction also wait for the open
// one to finish, so its rollback cannot discard them.
func (db *DB) writeLock(exec []core.DBExecutor) (unlock func()) {
	inTx := false
	if len(exec) > 0 {
		_, inTx = exec[0].(txExecutor)
	}
	if !inTx {
		db.txMu.Lock()
	}
	db.mu.Lock()
	return func() {
		db.mu.Unlock()
		if !inTx {
			db.txMu.Unlock()
		}
	}
}

func (db *DB) InTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	if hook := db.takeBeginHook(); hook != nil {
		hook()
	}

	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.RLock()
	snap := db.t.clone()
	db.mu.RUnlock()

	if err := fn(txExecutor{}); err != nil {
		db.mu.Lock()
		db.t = snap
		db.mu.Unlock()
		return err
	}
	return nil
}

// FailAfter makes the named repository operation fail with err once it has succeeded `after` times.
func (db *DB) FailAfter(op string, after int, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.faults[op] = &fault{after: after, err: err}
}

// OnBeginTx runs fn once, right before the next transaction starts. fn must not open a transaction.
func (db *DB) OnBeginTx(fn func()) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.beginHook = fn
}

func (db *DB) takeBeginHook() func() {
	db.mu.Lock()
	defer db.mu.Unlock()
	hook := db.beginHook
	db.beginHook = nil
	return hook
}

// checkFault must be called with mu held for writing.
func (db *DB) checkFault(op string) error {
	f, ok := db.faults[op]
	if !ok {
		return nil
	}
	if f.after > 0 {
		f.after--
		return nil
	}
	return f.err
}

// Truncate empties every table.
func (db *DB) Truncate() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.t = newTables()
	db.faults = make(map[string]*fault)
	db.beginHook = nil
}
