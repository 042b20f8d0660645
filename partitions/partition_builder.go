package partitions

import (
	"fmt"
)

// PartitionBuilder constructs the region layout of a cell sandwich
type PartitionBuilder struct {
	// Control volume counts per region, in through-thickness order
	Regions []Region
	Counts  []int

	// Minimum control volumes a solid-phase region may have. The solid
	// potential operator needs at least two volumes per electrode.
	MinSolidCount int
}

// NewSandwichBuilder returns a builder for the anode/separator/cathode stack
func NewSandwichBuilder(na, ns, nc int) *PartitionBuilder {
	return &PartitionBuilder{
		Regions:       []Region{Anode, Separator, Cathode},
		Counts:        []int{na, ns, nc},
		MinSolidCount: 2,
	}
}

// BuildPartitions creates a partition layout from the region counts
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if len(pb.Regions) != len(pb.Counts) {
		return nil, fmt.Errorf("%d regions but %d counts", len(pb.Regions), len(pb.Counts))
	}

	total := 0
	for i, c := range pb.Counts {
		r := pb.Regions[i]
		switch {
		case c <= 0:
			return nil, fmt.Errorf("%s: control volume count %d must be positive", r, c)
		case r.HasSolid() && c < pb.MinSolidCount:
			return nil, fmt.Errorf("%s: control volume count %d below minimum %d",
				r, c, pb.MinSolidCount)
		}
		total += c
	}

	// Block partition, consecutive nodes
	layout := &PartitionLayout{
		Partitions:    make([]Partition, len(pb.Counts)),
		TotalNodes:    total,
		NumPartitions: len(pb.Counts),
		NToP:          make([]int, total),
	}
	start := 0
	for i, c := range pb.Counts {
		layout.Partitions[i] = Partition{
			ID:     i,
			Region: pb.Regions[i],
			Start:  start,
			Count:  c,
		}
		for n := start; n < start+c; n++ {
			layout.NToP[n] = i
		}
		start += c
	}

	// Validate the layout
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}

	return layout, nil
}

// BuildRegions is shorthand for NewSandwichBuilder(na, ns, nc).BuildPartitions()
func BuildRegions(na, ns, nc int) (*PartitionLayout, error) {
	return NewSandwichBuilder(na, ns, nc).BuildPartitions()
}

// SplitCounts distributes n control volumes over three layers in proportion
// to their thicknesses. The separator and anode counts are truncated and the
// cathode takes the remainder.
func SplitCounts(n int, la, ls, lc float64) (na, ns, nc int, err error) {
	lt := la + ls + lc
	if n <= 0 || la <= 0 || ls <= 0 || lc <= 0 {
		return 0, 0, 0, fmt.Errorf("invalid split: n=%d, la=%g, ls=%g, lc=%g", n, la, ls, lc)
	}
	ns = int(float64(n) * (ls / lt))
	na = int(float64(n) * (la / lt))
	nc = n - ns - na
	return na, ns, nc, nil
}
