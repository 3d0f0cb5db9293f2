package filters

import (
	"fmt"
	"strings"
)

// Filter restricts a gallery listing to a subset of its images.
type Filter string

const (
	FilterNone   Filter = ""       // all images
	FilterVoted  Filter = "user"   // images the caller voted for
	FilterUpload Filter = "upload" // images the caller uploaded
)

// Sort selects the ordering of a gallery listing.
type Sort string

const (
	// SortRandom re-shuffles the listing on every call. This is the
	// default: the gallery presentation deliberately varies between
	// requests, callers wanting a stable order must ask for one.
	SortRandom Sort = ""
	SortByVote Sort = "byvote"
	SortByDate Sort = "bydate"
)

// Listing directives parsed from the query string. Unrecognized values are
// rejected here so the services downstream only ever see the enumerated
// ones.
type Input struct {
	Filter Filter
	Sort   Sort
}

func (in Input) Validate() error {
	switch in.Filter {
	case FilterNone, FilterVoted, FilterUpload:
	default:
		return fmt.Errorf("'%s' not allowed as filter parameter", in.Filter)
	}
	switch in.Sort {
	case SortRandom, SortByVote, SortByDate:
	default:
		return fmt.Errorf("'%s' not allowed as sort parameter", in.Sort)
	}
	return nil
}

// Parse a filter directive, mapping unrecognized values to no filtering,
// mirroring the lenient behaviour of query string parameters.
func ParseFilter(s string) Filter {
	switch Filter(strings.ToLower(s)) {
	case FilterVoted:
		return FilterVoted
	case FilterUpload:
		return FilterUpload
	default:
		return FilterNone
	}
}

// Parse a sort directive, mapping unrecognized values to the default
// random order.
func ParseSort(s string) Sort {
	switch Sort(strings.ToLower(s)) {
	case SortByVote:
		return SortByVote
	case SortByDate:
		return SortByDate
	default:
		return SortRandom
	}
}
