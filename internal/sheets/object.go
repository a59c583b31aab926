package sheets

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/storage"
)

// ObjectSource reads a workbook from object storage. A key ending in "/" selects
// the newest .xlsx under that prefix.
func ObjectSource(store storage.ObjectStorage, key string) *WorkbookSource {
	return NewWorkbookSource("object:"+key, func(ctx context.Context) (io.ReadCloser, error) {
		target := key
		if strings.HasSuffix(key, "/") {
			objects, err := store.ListObjects(ctx, key)
			if err != nil {
				return nil, err
			}
			workbooks := objects[:0]
			for _, o := range objects {
				if strings.HasSuffix(strings.ToLower(o.Key), ".xlsx") {
					workbooks = append(workbooks, o)
				}
			}
			latest, ok := storage.Latest(workbooks)
			if !ok {
				return nil, fmt.Errorf("no workbook under %s: %w", key, domain.ErrNotFound)
			}
			target = latest.Key
		}
		return store.OpenObject(ctx, target)
	})
}
