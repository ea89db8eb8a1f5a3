package memory

import (
	"testing"

	"github.com/garcia/facebook-api/internal/domain"
	"github.com/garcia/facebook-api/internal/repotest"
)

func TestContract_MemoryRepository(t *testing.T) {
	repotest.Run(t, func(t *testing.T) domain.PostRepository {
		t.Helper()
		return NewRepository()
	})
}
