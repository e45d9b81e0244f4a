package schedule

import "fmt"

// FetchError is a network failure or a non-2xx upstream response.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError marks one malformed record. It never aborts a normalization pass.
type ParseError struct {
	Source string
	Record string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: malformed record %q: %v", e.Source, e.Record, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Component, e.Reason)
}
