package backend

import (
	"container/list"
)

// CachedStorage wraps another Storage with an LRU cache of whole blocks.
// Writes go through to the inner device immediately; only reads are served
// from cache, so a crash never loses more than the inner device would.
type CachedStorage struct {
	inner     Storage
	blockSize int64
	maxBlocks int
	blocks    map[int64][]byte
	order     *list.List
	index     map[int64]*list.Element
}

var _ Storage = (*CachedStorage)(nil)

// NewCachedStorage wraps inner with a cache of up to maxBlocks blocks of
// blockSize bytes each.
func NewCachedStorage(inner Storage, blockSize int64, maxBlocks int) *CachedStorage {
	return &CachedStorage{
		inner:     inner,
		blockSize: blockSize,
		maxBlocks: maxBlocks,
		blocks:    make(map[int64][]byte),
		order:     list.New(),
		index:     make(map[int64]*list.Element),
	}
}

func (c *CachedStorage) insert(block int64, data []byte) {
	if el, ok := c.index[block]; ok {
		c.order.MoveToBack(el)
		copy(c.blocks[block], data)
		return
	}
	for c.order.Len() >= c.maxBlocks {
		front := c.order.Front()
		evicted := front.Value.(int64)
		c.order.Remove(front)
		delete(c.blocks, evicted)
		delete(c.index, evicted)
	}
	buf := make([]byte, c.blockSize)
	copy(buf, data)
	c.blocks[block] = buf
	c.index[block] = c.order.PushBack(block)
}

// ReadAt serves the request from cache when every covered block is
// resident, otherwise reads through and populates the cache.
func (c *CachedStorage) ReadAt(p []byte, off int64) (int, error) {
	first := off / c.blockSize
	last := (off + int64(len(p)) + c.blockSize - 1) / c.blockSize

	hit := true
	for b := first; b < last; b++ {
		if _, ok := c.blocks[b]; !ok {
			hit = false
			break
		}
	}

	if hit {
		n := 0
		for b := first; b < last; b++ {
			data := c.blocks[b]
			c.order.MoveToBack(c.index[b])
			blockStart := b * c.blockSize
			from := int64(0)
			if off > blockStart {
				from = off - blockStart
			}
			n += copy(p[n:], data[from:])
			if n >= len(p) {
				break
			}
		}
		return n, nil
	}

	n, err := c.inner.ReadAt(p, off)
	if err != nil {
		return n, err
	}
	// only whole blocks are cacheable
	for b := first; b < last; b++ {
		blockStart := b * c.blockSize
		if blockStart < off || blockStart+c.blockSize > off+int64(n) {
			continue
		}
		rel := blockStart - off
		c.insert(b, p[rel:rel+c.blockSize])
	}
	return n, nil
}

func (c *CachedStorage) WriteAt(p []byte, off int64) (int, error) {
	n, err := c.inner.WriteAt(p, off)
	if err != nil {
		return n, err
	}
	first := off / c.blockSize
	last := (off + int64(n) + c.blockSize - 1) / c.blockSize
	for b := first; b < last; b++ {
		blockStart := b * c.blockSize
		if blockStart < off || blockStart+c.blockSize > off+int64(n) {
			// partial block write, drop any stale cached copy
			if el, ok := c.index[b]; ok {
				c.order.Remove(el)
				delete(c.blocks, b)
				delete(c.index, b)
			}
			continue
		}
		rel := blockStart - off
		c.insert(b, p[rel:rel+c.blockSize])
	}
	return n, nil
}

func (c *CachedStorage) Size() (int64, error) {
	return c.inner.Size()
}

func (c *CachedStorage) Sync() error {
	return c.inner.Sync()
}

func (c *CachedStorage) Close() error {
	return c.inner.Close()
}
