// Package guard flips the test-mode flag for packages that blank-import it,
// keeping runtime side effects out of unit tests.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("HWSYSTEM_TEST_MODE") == "" {
			_ = os.Setenv("HWSYSTEM_TEST_MODE", "1")
		}
	})
}
