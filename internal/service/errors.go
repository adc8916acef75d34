package service

import "fmt"

// StoreError marks a persistence failure inside an ingestion cycle. Fetch
// failures keep their own type at the client boundary; everything that fails
// after a successful fetch is a store failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failed (%s): %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
