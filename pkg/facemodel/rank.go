package facemodel

import "fmt"

// Rank selects how many components a fit keeps. The zero value is FullRank.
type Rank struct {
	k   int
	top bool
}

// FullRank keeps every component the economy SVD produces, min(dims, samples).
func FullRank() Rank {
	return Rank{}
}

// TopK keeps the k components with the largest singular values. k must be
// at least 1; values above the available rank are clamped at fit time.
func TopK(k int) Rank {
	return Rank{k: k, top: true}
}

// RankFromInt maps the integer convention used by configuration files,
// where 0 means full rank, onto a Rank.
func RankFromInt(k int) Rank {
	if k == 0 {
		return FullRank()
	}
	return TopK(k)
}

// IsFull reports whether r keeps all components.
func (r Rank) IsFull() bool {
	return !r.top
}

// K returns the requested component count, or 0 for FullRank.
func (r Rank) K() int {
	return r.k
}

// Validate reports ErrInvalidConfiguration for a TopK below 1.
func (r Rank) Validate() error {
	if r.top && r.k < 1 {
		return fmt.Errorf("%w: top-k rank must be at least 1, got %d", ErrInvalidConfiguration, r.k)
	}
	return nil
}

// resolve returns the number of components to keep when available are produced.
func (r Rank) resolve(available int) int {
	if !r.top || r.k > available {
		return available
	}
	return r.k
}

func (r Rank) String() string {
	if !r.top {
		return "full"
	}
	return fmt.Sprintf("top-%d", r.k)
}
