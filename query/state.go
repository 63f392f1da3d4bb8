package query

import "time"

// Status is the fetch state of a query entry.
type Status int

const (
	// StatusIdle means no fetch has run yet.
	StatusIdle Status = iota
	// StatusFetching means a fetch (or a pending retry) is in flight.
	// Previously fetched data, if any, is still served.
	StatusFetching
	// StatusSuccess means the last fetch succeeded.
	StatusSuccess
	// StatusError means the last fetch failed terminally.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusFetching:
		return "fetching"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// State is a snapshot of a query entry.
type State[T any] struct {
	Key    Key
	Status Status

	// Data is the last successfully fetched value; HasData reports whether
	// there is one.
	Data    T
	HasData bool

	// Err is the terminal error of the last fetch cycle.
	Err error

	FetchedAt time.Time
	StaleAt   time.Time

	// RetryCount is the number of consecutive failed attempts.
	RetryCount int

	Observers int
	IsStale   bool

	// Removed is set once the entry has been dropped by Remove.
	Removed bool
}

// Pending reports whether an observer has nothing to show yet: no data and
// no terminal error.
func (s State[T]) Pending() bool {
	return !s.HasData && s.Status != StatusError
}

func convertState[T any](s State[any]) State[T] {
	out := State[T]{
		Key:        s.Key,
		Status:     s.Status,
		HasData:    s.HasData,
		Err:        s.Err,
		FetchedAt:  s.FetchedAt,
		StaleAt:    s.StaleAt,
		RetryCount: s.RetryCount,
		Observers:  s.Observers,
		IsStale:    s.IsStale,
		Removed:    s.Removed,
	}
	if s.HasData {
		if v, ok := s.Data.(T); ok {
			out.Data = v
		}
	}
	return out
}
