package issues

type Filter string

const (
	FilterOpen   Filter = "open"
	FilterClosed Filter = "closed"
	FilterAll    Filter = "all"
)

var filterCycle = []Filter{FilterOpen, FilterClosed, FilterAll}

func ParseFilter(s string) (Filter, bool) {
	for _, f := range filterCycle {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// Next returns the filter after f in open, closed, all order.
func (f Filter) Next() Filter {
	for i, c := range filterCycle {
		if c == f {
			return filterCycle[(i+1)%len(filterCycle)]
		}
	}
	return FilterOpen
}
