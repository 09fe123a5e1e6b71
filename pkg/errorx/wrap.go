package errorx

import "fmt"

// Wrap annotates err with the operation that produced it, e.g. "postgres.UserRepo.GetUserByEmail".
// It returns nil when err is nil and keeps the chain intact for errors.Is and errors.As.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", op, err)
}
