package memory

import (
	"testing"

	"github.com/pinewilt/kgcurate/backend/pkg/store"
	"github.com/pinewilt/kgcurate/backend/pkg/store/storetest"
)

func TestGraphMemStorage(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.GraphStorage {
		return New()
	})
}
