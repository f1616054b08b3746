package verification

import (
	"hive/internal/rag"
	"hive/internal/store"
)

// StoreScope gives every request its own namespace of vs, so positional
// document ids from concurrent requests never collide. An empty request id
// uses the shared default namespace.
func StoreScope(vs *store.VectorStore) rag.Scope {
	return func(requestID string) rag.Index {
		if requestID == store.DefaultNamespace {
			return vs
		}
		return vs.Namespace(requestID)
	}
}
