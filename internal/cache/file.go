// =============================================================================
// Firefly Amazon Reconciler - File Cache Backend
// =============================================================================
//
// Default backend: <cache_dir>/<order_id>.json for parsed orders and
// <order_id>.html for raw pages of failed parses. Survives restarts, so a
// re-run after fixing the parser picks the raw pages up from disk.
//
// =============================================================================

package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/amazon"
	"github.com/ginjaninja78/firefly-amazon-reconciler/pkg/utils"
)

// FileStore is a Store backed by a local directory.
type FileStore struct {
	dir string
	log *zap.Logger
}

// NewFileStore creates the cache directory if needed.
func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir, log: log}, nil
}

func (s *FileStore) GetOrder(id string) (*amazon.Order, bool) {
	data, err := os.ReadFile(s.orderPath(id))
	if err != nil {
		return nil, false
	}

	var order amazon.Order
	if err := json.Unmarshal(data, &order); err != nil || len(order.Shipments) == 0 {
		s.log.Error("discarding corrupt cache entry",
			zap.String("order_id", id), zap.Error(err))
		return nil, false
	}

	return &order, true
}

func (s *FileStore) PutOrder(id string, order *amazon.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("cache encode order %s: %w", id, err)
	}

	if err := utils.WriteFileAtomic(s.orderPath(id), data); err != nil {
		return err
	}

	// Success evicts the failure slot.
	if err := os.Remove(s.rawPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache evict raw %s: %w", id, err)
	}
	return nil
}

func (s *FileStore) PutRaw(id string, html string) error {
	return utils.WriteFileAtomic(s.rawPath(id), []byte(html))
}

func (s *FileStore) orderPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) rawPath(id string) string {
	return filepath.Join(s.dir, id+".html")
}
