// Package classloader implements the Class Repository collaborator named
// in spec.md §2/§4.3: lookup by binary name with loader delegation, and
// the per-class initialization-state gate (JVMS §5.5).
package classloader

import (
	"fmt"
	"sync"

	"github.com/wudi/jvmcore/internal/classfile"
	"github.com/wudi/jvmcore/internal/diag"
)

// Initializer runs a class's <clinit> (and its superclass's, recursively)
// by way of a nested JavaCall. Supplied by package vm to avoid a
// classloader -> vm import cycle (vm already imports classloader).
type Initializer func(threadID uint64, c *classfile.ClassRef) error

// NoClassDefFoundError is returned by EnsureInitialized when a class is
// permanently in classfile.Error state.
type NoClassDefFoundError struct{ ClassName string }

func (e *NoClassDefFoundError) Error() string {
	return fmt.Sprintf("NoClassDefFoundError: %s", e.ClassName)
}

// ExceptionInInitializerError wraps a <clinit> failure, per spec.md §4.3.
type ExceptionInInitializerError struct {
	ClassName string
	Cause     error
}

func (e *ExceptionInInitializerError) Error() string {
	return fmt.Sprintf("ExceptionInInitializerError: %s: %v", e.ClassName, e.Cause)
}
func (e *ExceptionInInitializerError) Unwrap() error { return e.Cause }

// Repository is the VM-wide class table: lookup by binary name with
// loader delegation, plus the initialization gate.
type Repository struct {
	mu      sync.RWMutex
	loaders map[string]*loaderScope // loader id -> classes it has defined
	log     *diag.Logger
}

type loaderScope struct {
	classes map[string]*classfile.ClassRef
	parent  string // parent loader id, "" for the bootstrap loader
}

// New constructs an empty repository with a bootstrap loader scope ("").
func New(log *diag.Logger) *Repository {
	return &Repository{
		loaders: map[string]*loaderScope{"": {classes: map[string]*classfile.ClassRef{}}},
		log:     log,
	}
}

// Define registers c under loaderID, creating the loader scope if this is
// its first class.
func (r *Repository) Define(loaderID string, c *classfile.ClassRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scope, ok := r.loaders[loaderID]
	if !ok {
		scope = &loaderScope{classes: map[string]*classfile.ClassRef{}}
		r.loaders[loaderID] = scope
	}
	scope.classes[c.Name] = c
}

// SetParent establishes delegation: lookups against loaderID fall back to
// parentID when not found locally.
func (r *Repository) SetParent(loaderID, parentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scope, ok := r.loaders[loaderID]
	if !ok {
		scope = &loaderScope{classes: map[string]*classfile.ClassRef{}}
		r.loaders[loaderID] = scope
	}
	scope.parent = parentID
}

// Lookup finds a class by binary name, starting at loaderID and
// delegating to parent loaders on miss (the standard JVM delegation
// model).
func (r *Repository) Lookup(loaderID, binaryName string) (*classfile.ClassRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{}
	for id := loaderID; !seen[id]; {
		seen[id] = true
		scope, ok := r.loaders[id]
		if !ok {
			return nil, false
		}
		if c, ok := scope.classes[binaryName]; ok {
			return c, true
		}
		id = scope.parent
	}
	return nil, false
}

// EnsureInitialized implements the JVMS §5.5 state machine described in
// spec.md §4.3. init is invoked (outside any repository lock, per the
// design note in spec.md §9) to run <clinit> when this call is the one
// that wins the race to initialize c.
func (r *Repository) EnsureInitialized(threadID uint64, c *classfile.ClassRef, init Initializer) error {
	c.Lock()
	for {
		switch c.State() {
		case classfile.Initialized:
			c.Unlock()
			return nil
		case classfile.Error:
			c.Unlock()
			return &NoClassDefFoundError{ClassName: c.Name}
		case classfile.InProgress:
			if c.InitializerThread() == threadID {
				// Recursive init from within <clinit> or a constructor it
				// calls: JVMS requires this to proceed without blocking.
				c.Unlock()
				return nil
			}
			c.WaitForInit()
			continue
		default: // Loaded or Linked
			c.BeginInit(threadID)
			c.Unlock()
			if err := r.runInit(threadID, c, init); err != nil {
				return err
			}
			return nil
		}
	}
}

func (r *Repository) runInit(threadID uint64, c *classfile.ClassRef, init Initializer) error {
	// Superclass and super-interfaces initialize first, recursively.
	if c.Super != nil {
		if err := r.EnsureInitialized(threadID, c.Super, init); err != nil {
			c.FinishInit(classfile.Error)
			return err
		}
	}
	for _, iface := range c.Interfaces {
		if err := r.EnsureInitialized(threadID, iface, init); err != nil {
			c.FinishInit(classfile.Error)
			return err
		}
	}

	err := init(threadID, c)
	if err != nil {
		c.FinishInit(classfile.Error)
		if r.log != nil {
			r.log.Errorf("class init failed for %s: %v", c.Name, err)
		}
		if _, already := err.(*ExceptionInInitializerError); already {
			return err
		}
		return &ExceptionInInitializerError{ClassName: c.Name, Cause: err}
	}
	c.FinishInit(classfile.Initialized)
	return nil
}
