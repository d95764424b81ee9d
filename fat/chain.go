package fat

import (
	"fmt"

	"github.com/keks/chainfs"
)

// Next returns the block following i in its chain, or EndOfChain.
func (t *Table) Next(i Index) (Index, error) {
	if !t.Valid(i) {
		return 0, fmt.Errorf("block %d is outside the data region: %w", i, chainfs.ErrCorruptVolume)
	}

	next := t.entries[i]
	switch {
	case next == EndOfChain:
		return EndOfChain, nil
	case next == Free:
		return 0, fmt.Errorf("block %d is in a chain but marked free: %w", i, chainfs.ErrCorruptVolume)
	case !t.Valid(next):
		return 0, fmt.Errorf("block %d links to %d, outside the data region: %w", i, next, chainfs.ErrCorruptVolume)
	}

	return next, nil
}

// Walk calls fn for every block of the chain starting at head, in order.
// It stops at the first error returned by fn.
func (t *Table) Walk(head Index, fn func(Index) error) error {
	steps := 0
	for i := head; i != EndOfChain; steps++ {
		if steps >= len(t.entries) {
			return fmt.Errorf("chain starting at %d has a cycle: %w", head, chainfs.ErrCorruptVolume)
		}
		if !t.Valid(i) {
			return fmt.Errorf("block %d is outside the data region: %w", i, chainfs.ErrCorruptVolume)
		}

		if err := fn(i); err != nil {
			return err
		}

		var err error
		if i, err = t.Next(i); err != nil {
			return err
		}
	}

	return nil
}

// Chain returns the blocks of the chain starting at head.
func (t *Table) Chain(head Index) ([]Index, error) {
	var chain []Index
	err := t.Walk(head, func(i Index) error {
		chain = append(chain, i)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chain, nil
}

// Seek returns the block n links into the chain starting at head. It
// returns EndOfChain if the chain has n or fewer blocks.
func (t *Table) Seek(head Index, n int) (Index, error) {
	i := head
	for ; n > 0 && i != EndOfChain; n-- {
		var err error
		if i, err = t.Next(i); err != nil {
			return 0, err
		}
	}

	if i != EndOfChain && !t.Valid(i) {
		return 0, fmt.Errorf("block %d is outside the data region: %w", i, chainfs.ErrCorruptVolume)
	}

	return i, nil
}

// Allocate claims the free block with the lowest index and marks it as the
// end of a chain.
func (t *Table) Allocate() (Index, error) {
	for i := 1; i < len(t.entries); i++ {
		if t.entries[i] == Free {
			t.entries[i] = EndOfChain
			return Index(i), nil
		}
	}

	return 0, fmt.Errorf("no free data block: %w", chainfs.ErrTableFull)
}

// Extend appends a newly allocated block to the chain starting at head.
// An empty chain (head is EndOfChain) gets the new block as its head. It
// returns the, possibly new, head and the appended block.
func (t *Table) Extend(head Index) (newHead, block Index, err error) {
	tail := EndOfChain
	if head != EndOfChain {
		if err := t.Walk(head, func(i Index) error {
			tail = i
			return nil
		}); err != nil {
			return head, 0, err
		}
	}

	block, err = t.Allocate()
	if err != nil {
		return head, 0, err
	}

	if tail == EndOfChain {
		return block, block, nil
	}

	t.entries[tail] = block
	return head, block, nil
}

// Release frees every block of the chain starting at head. Releasing an
// empty chain does nothing. A malformed chain is left untouched.
func (t *Table) Release(head Index) error {
	chain, err := t.Chain(head)
	if err != nil {
		return err
	}

	for _, i := range chain {
		t.entries[i] = Free
	}

	return nil
}

// TrimTail frees the last block of the chain starting at head and returns
// the head of the shortened chain, which is EndOfChain if the chain had a
// single block.
func (t *Table) TrimTail(head Index) (Index, error) {
	chain, err := t.Chain(head)
	if err != nil {
		return head, err
	}

	switch len(chain) {
	case 0:
		return EndOfChain, nil
	case 1:
		t.entries[chain[0]] = Free
		return EndOfChain, nil
	}

	t.entries[chain[len(chain)-2]] = EndOfChain
	t.entries[chain[len(chain)-1]] = Free
	return head, nil
}
