package application

import (
	"errors"

	"github.com/felixgeelhaar/policykeeper/domain/fault"
)

func isNotFound(err error) bool {
	return errors.Is(err, fault.ErrNotFound)
}
