package fault

import "fmt"

// Wraps err with the sentinel kind.
//
// The result matches both kind and err under [errors.Is]. A nil err yields
// nil so call sites can wrap unconditionally.
func Wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Wraps a formatted message with the sentinel kind.
//
// The format may itself contain a %w verb to chain a cause.
func Wrapf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{kind}, args...)...)
}
