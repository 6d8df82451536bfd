package store

// batch buffers the rows of new containers of one type until they are
// written with a multi-row INSERT.
//
// Rows hold bound values in column order. The identifier column comes first
// so that inserted rows keep the sequence numbers assigned at Add.
type batch struct {
	containerType string
	columns       []string
	rows          [][]any
	capacity      int
}

func newBatch(containerType string, dataColumns []string, capacity int) *batch {
	columns := make([]string, 0, len(dataColumns)+1)
	columns = append(columns, identifierColumn)
	columns = append(columns, dataColumns...)
	return &batch{
		containerType: containerType,
		columns:       columns,
		rows:          make([][]any, 0, capacity),
		capacity:      capacity,
	}
}

func (b *batch) push(row []any) {
	b.rows = append(b.rows, row)
}

// shouldFlush reports whether the batch reached its capacity.
func (b *batch) shouldFlush() bool {
	return len(b.rows) >= b.capacity
}

func (b *batch) len() int {
	return len(b.rows)
}

// drain empties the batch once its rows are committed.
func (b *batch) drain() {
	clear(b.rows)
	b.rows = b.rows[:0]
}
