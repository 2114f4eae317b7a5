package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("COURIERDASH_TEST_MODE") == "" {
			_ = os.Setenv("COURIERDASH_TEST_MODE", "1")
		}
	})
}
