// Provides helpers for wrapping causes with package-level sentinel errors.
//
// Every package declares its own sentinels (for example runtime.ErrRuntime)
// and wraps lower-level causes with them, so callers can match the category
// with [errors.Is] and still reach the cause with [errors.As]:
//
//	if err := ctr.Remove(ctx); err != nil {
//	    return fault.Wrap(ErrRuntime, err)
//	}
package fault
