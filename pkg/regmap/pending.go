package regmap

import (
	"fmt"
	"sync/atomic"
)

var requestSeq atomic.Uint64

// PendingRequest correlates an in-flight read or write with the connection
// and block it belongs to. It holds no reference to the connection itself.
type PendingRequest struct {
	ID           uint64
	ConnectionID string
	Block        string
	Property     string
	Write        bool
	Prime        bool
}

func newRequest(connID, block string) PendingRequest {
	return PendingRequest{
		ID:           requestSeq.Add(1),
		ConnectionID: connID,
		Block:        block,
	}
}

func (r PendingRequest) String() string {
	kind := "read"
	if r.Write {
		kind = "write"
	}
	return fmt.Sprintf("%s#%d(%s/%s)", kind, r.ID, r.ConnectionID, r.Block)
}
