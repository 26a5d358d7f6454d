// Package gen implements the rewriting pipeline: classification of marked
// items, generic reachability analysis, name mangling, forwarding-pair
// emission, and the trait contract rules. Each marked item moves through a
// small state machine and either yields its RewritePair or is rejected with
// a single diagnostic; there is no partial emission.
package gen

import (
	"fmt"

	"github.com/privsplit/privsplit/compiler/load"
)

// State is the processing stage of one marked item.
type State uint8

// Item states. Emitted and Rejected are terminal.
const (
	Unclassified State = iota
	Classified
	GenericsResolved
	Emitted
	Rejected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unclassified:
		return "unclassified"
	case Classified:
		return "classified"
	case GenericsResolved:
		return "generics_resolved"
	case Emitted:
		return "emitted"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Item tracks one marked declaration through the pipeline.
type Item struct {
	decl     *load.Declaration
	state    State
	err      error
	generics []load.GenericParam
	pair     *RewritePair
}

// NewItem wraps a loaded declaration for processing.
func NewItem(d *load.Declaration) *Item {
	return &Item{decl: d}
}

// Decl returns the underlying declaration.
func (it *Item) Decl() *load.Declaration { return it.decl }

// State returns the current processing stage.
func (it *Item) State() State { return it.state }

// Err returns the rejection diagnostic, if the item was rejected.
func (it *Item) Err() error { return it.err }

// Pair returns the emitted rewrite pair, valid only in the Emitted state.
func (it *Item) Pair() *RewritePair { return it.pair }

// Run drives the item to a terminal state. The contract argument carries the
// trait-side contract governing the item, or nil when no trait is involved;
// it is consulted only for trait implementation methods.
func (it *Item) Run(contract *TraitContract) error {
	if err := it.classify(); err != nil {
		return it.reject(err)
	}
	if err := it.resolveGenerics(); err != nil {
		return it.reject(err)
	}
	if err := it.emit(contract); err != nil {
		return it.reject(err)
	}
	return nil
}

func (it *Item) classify() error {
	if it.state != Unclassified {
		return fmt.Errorf("gen: classify on %s item", it.state)
	}
	if err := Classify(it.decl); err != nil {
		return err
	}
	it.state = Classified
	return nil
}

func (it *Item) resolveGenerics() error {
	if it.state != Classified {
		return fmt.Errorf("gen: generic resolution on %s item", it.state)
	}
	generics, err := ReachableGenerics(it.decl)
	if err != nil {
		return err
	}
	it.generics = generics
	it.state = GenericsResolved
	return nil
}

func (it *Item) emit(contract *TraitContract) error {
	if it.state != GenericsResolved {
		return fmt.Errorf("gen: emit on %s item", it.state)
	}
	var (
		pair *RewritePair
		err  error
	)
	if it.decl.Context == load.TraitImplMethod {
		pair, err = RewriteImplMethod(it.decl, it.generics, contract)
	} else {
		pair, err = emitPair(it.decl, it.generics)
	}
	if err != nil {
		return err
	}
	it.pair = pair
	it.state = Emitted
	return nil
}

// reject moves the item to the terminal Rejected state and discards any
// intermediate results, keeping the failure atomic per item.
func (it *Item) reject(err error) error {
	it.state = Rejected
	it.err = err
	it.pair = nil
	it.generics = nil
	return err
}
