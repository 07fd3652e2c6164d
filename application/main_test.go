package application_test

import (
	"os"
	"testing"

	"github.com/felixgeelhaar/policykeeper/infrastructure/logging"
)

func TestMain(m *testing.M) {
	logging.Init(logging.QuietConfig())
	os.Exit(m.Run())
}
