package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("DOMINION_TEST_MODE") == "" {
			_ = os.Setenv("DOMINION_TEST_MODE", "1")
		}
	})
}
