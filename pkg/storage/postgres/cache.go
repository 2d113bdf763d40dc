package postgres

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/openstats/databank/pkg/model"
)

// l1Cache is a small in-process LRU in front of Redis. Data set records are
// tiny and read on every request, so keeping them in-process shaves a network
// round trip off the hot path. Entries expire on the same TTL as the Redis
// tier; staleness is bounded, not avoided.
type l1Cache struct {
	dataSets *expirable.LRU[string, *model.DataSet]
}

func newL1Cache(size int, ttl time.Duration) *l1Cache {
	if size <= 0 {
		size = 1024
	}
	return &l1Cache{
		dataSets: expirable.NewLRU[string, *model.DataSet](size, nil, ttl),
	}
}

func (c *l1Cache) getDataSet(id string) (*model.DataSet, bool) {
	return c.dataSets.Get(id)
}

func (c *l1Cache) setDataSet(ds *model.DataSet) {
	c.dataSets.Add(ds.ID, ds)
}

func (c *l1Cache) invalidateDataSet(id string) {
	c.dataSets.Remove(id)
}

func (c *l1Cache) purge() {
	c.dataSets.Purge()
}
