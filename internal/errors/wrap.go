package errors

import "fmt"

// Wrap adds context to an error and returns nil for a nil error, so it can
// be used inline:
//
//	return errors.Wrap(store.Save(ctx, snap), "persist snapshot")
//
// The chain is preserved; errors.Is(err, errors.ErrDetection) keeps working
// on the result.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf is Wrap with a formatted message:
//
//	return errors.Wrapf(err, "capture environment for %s", name)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
