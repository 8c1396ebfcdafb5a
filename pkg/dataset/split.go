package dataset

import (
	"math"
	"math/rand"
	"sort"
)

// Split is one of the three dataset partitions
type Split int

const (
	SplitTrain Split = iota
	SplitVal
	SplitTest
)

// AllSplits in the order that they are processed
var AllSplits = []Split{SplitTrain, SplitVal, SplitTest}

func (s Split) String() string {
	switch s {
	case SplitTrain:
		return "train"
	case SplitVal:
		return "val"
	case SplitTest:
		return "test"
	}
	panic("Unknown split")
}

// Partition is the result of splitting one folder's basenames.
// Every input basename is in exactly one of the three lists.
type Partition struct {
	Train []string
	Val   []string
	Test  []string
}

func (p *Partition) Get(s Split) []string {
	switch s {
	case SplitTrain:
		return p.Train
	case SplitVal:
		return p.Val
	case SplitTest:
		return p.Test
	}
	panic("Unknown split")
}

// Split partitions basenames into train/val/test.
//
// This is a two stage split. First we shuffle with the fixed seed and cut off
// floor(TrainRatio * n) items for train. Then we shuffle the remainder with a fresh
// RNG from the same seed, and cut off floor(ValRatio/(ValRatio+TestRatio) * r) items
// for val. Test gets whatever is left, so rounding always favours test.
// With the default 0.75/0.15/0.10 ratios:
//
//	n=1    0/0/1
//	n=2    1/0/1
//	n=3    2/0/1
//	n=4    3/0/1
//	n=10   7/1/2
//	n=100  75/15/10
//
// The input is sorted first, so the result doesn't depend on directory listing order.
func (c *Config) Split(basenames []string) Partition {
	names := append([]string{}, basenames...)
	sort.Strings(names)

	shuffle(names, c.Seed)
	nTrain := floorCount(c.TrainRatio, len(names))
	train := names[:nTrain]
	rest := append([]string{}, names[nTrain:]...)

	valShare := 0.0
	if c.ValRatio+c.TestRatio > 0 {
		valShare = c.ValRatio / (c.ValRatio + c.TestRatio)
	}
	shuffle(rest, c.Seed)
	nVal := floorCount(valShare, len(rest))

	return Partition{
		Train: train,
		Val:   rest[:nVal],
		Test:  rest[nVal:],
	}
}

func shuffle(s []string, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
}

// floorCount returns floor(ratio * n), clamped to [0, n].
// The epsilon absorbs float error such as 0.6 * 25 = 14.999999999999998.
func floorCount(ratio float64, n int) int {
	c := int(math.Floor(ratio*float64(n) + 1e-9))
	return max(0, min(n, c))
}
