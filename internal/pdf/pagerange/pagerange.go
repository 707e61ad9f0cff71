package pagerange

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PageRange represents an inclusive range of 1-based page numbers
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether page lies inside the range
func (r PageRange) Contains(page int) bool {
	return page >= r.Start && page <= r.End
}

func (r PageRange) String() string {
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Parse reads a selection such as "1-3,5,8-". An open end ("8-") runs to
// the last page. An empty selection returns nil, meaning every page.
func Parse(selection string) ([]PageRange, error) {
	selection = strings.TrimSpace(selection)
	if selection == "" {
		return nil, nil
	}

	var ranges []PageRange
	for _, part := range strings.Split(selection, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		startStr, endStr, isRange := strings.Cut(part, "-")
		start, err := parsePageNumber(startStr)
		if err != nil {
			return nil, fmt.Errorf("invalid page range %q: %w", part, err)
		}

		end := start
		if isRange {
			if strings.TrimSpace(endStr) == "" {
				end = math.MaxInt
			} else if end, err = parsePageNumber(endStr); err != nil {
				return nil, fmt.Errorf("invalid page range %q: %w", part, err)
			}
		}
		if start > end {
			return nil, fmt.Errorf("invalid page range %q: start after end", part)
		}

		ranges = append(ranges, PageRange{Start: start, End: end})
	}

	if len(ranges) == 0 {
		return nil, fmt.Errorf("invalid page selection %q", selection)
	}
	return ranges, nil
}

func parsePageNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not a page number: %q", s)
	}
	if n < 1 {
		return 0, fmt.Errorf("page numbers start at 1, got %d", n)
	}
	return n, nil
}

// Normalize clamps ranges to a document with totalPages pages and drops the
// ones that fall entirely outside it.
func Normalize(ranges []PageRange, totalPages int) []PageRange {
	var validRanges []PageRange

	for _, r := range ranges {
		start := r.Start
		end := r.End

		if start < 1 {
			start = 1
		}
		if end > totalPages {
			end = totalPages
		}
		if start > end {
			continue
		}

		validRanges = append(validRanges, PageRange{Start: start, End: end})
	}

	return validRanges
}

// Selected reports whether page is covered by ranges. A nil selection
// covers every page.
func Selected(ranges []PageRange, page int) bool {
	if ranges == nil {
		return true
	}
	for _, r := range ranges {
		if r.Contains(page) {
			return true
		}
	}
	return false
}
