package huge

// Cursor walks an Array one backing page at a time. After Next returns true,
// Array[Offset:Limit] holds the elements with global indexes
// Base+Offset .. Base+Limit-1.
//
//	c := arr.NewCursor()
//	for c.Next() {
//		for i := c.Offset; i < c.Limit; i++ {
//			use(c.Base+int64(i), c.Array[i])
//		}
//	}
type Cursor[T any] struct {
	Array  []T
	Base   int64
	Offset int
	Limit  int

	pages [][]T
	next  int64
	end   int64
}

// NewCursor returns a cursor over the whole array.
func (a *Array[T]) NewCursor() *Cursor[T] {
	c := &Cursor[T]{}
	a.InitCursor(c)
	return c
}

// InitCursor resets c to cover the whole array.
func (a *Array[T]) InitCursor(c *Cursor[T]) {
	a.InitCursorRange(c, 0, a.size)
}

// InitCursorRange resets c to cover [start, end). It panics when the range is
// not within the array.
func (a *Array[T]) InitCursorRange(c *Cursor[T], start, end int64) {
	if start < 0 || start > end || end > a.size {
		panic(errRange(start, end, a.size))
	}
	c.pages = a.pages
	c.next = start
	c.end = end
	c.Array = nil
	c.Base, c.Offset, c.Limit = 0, 0, 0
}

// Next advances to the next page slice. It returns false when the range is
// exhausted.
func (c *Cursor[T]) Next() bool {
	if c.next >= c.end {
		c.Array = nil
		return false
	}
	p := pageIndex(c.next)
	page := c.pages[p]
	off := indexInPage(c.next)
	limit := min(int64(len(page)), off+(c.end-c.next))

	c.Array = page
	c.Base = p << PageShift
	c.Offset = int(off)
	c.Limit = int(limit)
	c.next = c.Base + limit
	return true
}
