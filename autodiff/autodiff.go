// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation of scalar
// expressions.
//
// Expressions are built from leaf variables of a Session. Calling Backward
// on a result computes the adjoint of every node it depends on. Adjoints
// are themselves expressions, so they can be differentiated again.
//
// Example:
//
//	import "github.com/born-ml/adgraph/autodiff"
//
//	func main() {
//	    s := autodiff.New(autodiff.Options{})
//	    defer s.Close()
//
//	    x := s.Var(2)
//	    y := s.Var(5)
//	    f := x.Log().Add(x.Mul(y)).Sub(y.Sin()) // log(x) + x*y - sin(y)
//
//	    fmt.Println(f.Value()) // 11.652071...
//
//	    if err := f.Backward(); err != nil {
//	        log.Fatal(err)
//	    }
//	    dx, _ := x.Grad() // 5.5
//	    dy, _ := y.Grad() // 1.716338...
//	}
package autodiff

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/born-ml/adgraph/internal/autodiff"
	"github.com/born-ml/adgraph/internal/autodiff/ops"
	"github.com/born-ml/adgraph/internal/serialization"
)

// Version of the engine.
const Version = autodiff.Version

// Session owns the nodes of one computation.
type Session = autodiff.Session

// Var is a handle to a node of a Session.
type Var = autodiff.Var

// Options configures a Session.
type Options = autodiff.Options

// Order selects the backward traversal strategy.
type Order = autodiff.Order

// Traversal orders.
const (
	OrderDFS         = autodiff.OrderDFS
	OrderReinsertion = autodiff.OrderReinsertion
)

// Op identifies the operation of a node.
type Op = ops.Kind

// Metrics holds the Prometheus collectors updated by sessions.
type Metrics = autodiff.Metrics

// Snapshot is the serialized form of a Session.
type Snapshot = serialization.Header

// Errors.
var (
	ErrNoAdjoint     = autodiff.ErrNoAdjoint
	ErrEmptyAdjoint  = autodiff.ErrEmptyAdjoint
	ErrNotLeaf       = autodiff.ErrNotLeaf
	ErrInvalidVar    = autodiff.ErrInvalidVar
	ErrForeignVar    = autodiff.ErrForeignVar
	ErrSessionClosed = autodiff.ErrSessionClosed
	ErrUnknownOrder  = autodiff.ErrUnknownOrder
)

// New creates an empty session.
//
// Example:
//
//	s := autodiff.New(autodiff.Options{Order: autodiff.OrderDFS})
func New(opts Options) *Session {
	return autodiff.New(opts)
}

// NewMetrics creates the session collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return autodiff.NewMetrics(reg)
}

// ParseOrder converts "dfs" or "reinsertion" to an Order.
func ParseOrder(s string) (Order, error) {
	return autodiff.ParseOrder(s)
}

// Save writes a snapshot of s to path.
func Save(s *Session, path string, metadata map[string]string) error {
	return serialization.WriteFile(path, s.Export(metadata))
}

// Load restores a session from a snapshot written by Save.
func Load(path string, opts Options) (*Session, error) {
	h, err := serialization.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return autodiff.Restore(h, opts)
}
