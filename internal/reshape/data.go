package reshape

import "slices"

// DelimitedRow is one logical input row. Line is the physical line it
// starts on (the header is line 1).
type DelimitedRow struct {
	line    int
	fields  []string
	numeric []int
}

func NewDelimitedRow(line int, fields ...string) DelimitedRow {
	return DelimitedRow{line: line, fields: fields}
}

func (r DelimitedRow) Line() int {
	return r.line
}

func (r DelimitedRow) Fields() []string {
	return slices.Clone(r.fields)
}

func (r DelimitedRow) Field(i int) string {
	if i < 0 || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

func (r DelimitedRow) Len() int {
	return len(r.fields)
}

// WithNumeric marks the fields at idx as numbers. RenderJSON emits them
// unquoted; CSV output is unaffected.
func (r DelimitedRow) WithNumeric(idx ...int) DelimitedRow {
	r.numeric = append(slices.Clone(r.numeric), idx...)
	return r
}

func (r DelimitedRow) IsNumeric(i int) bool {
	return slices.Contains(r.numeric, i)
}

type OutputBucket struct {
	name string
	rows []DelimitedRow
}

func (b OutputBucket) Name() string {
	return b.name
}

func (b OutputBucket) Rows() []DelimitedRow {
	return b.rows
}

// Buckets keeps buckets in first-seen order and rows in insertion order.
type Buckets struct {
	order []*OutputBucket
	index map[string]*OutputBucket
}

func NewBuckets() *Buckets {
	return &Buckets{index: make(map[string]*OutputBucket)}
}

func (b *Buckets) Add(name string, row DelimitedRow) {
	bucket, ok := b.index[name]
	if !ok {
		bucket = &OutputBucket{name: name}
		b.index[name] = bucket
		b.order = append(b.order, bucket)
	}
	bucket.rows = append(bucket.rows, row)
}

// Replace drops whatever rows name held and stores rows instead,
// keeping the bucket's position if it already existed.
func (b *Buckets) Replace(name string, rows []DelimitedRow) {
	bucket, ok := b.index[name]
	if !ok {
		bucket = &OutputBucket{name: name}
		b.index[name] = bucket
		b.order = append(b.order, bucket)
	}
	bucket.rows = slices.Clone(rows)
}

func (b *Buckets) Names() []string {
	names := make([]string, len(b.order))
	for i, bucket := range b.order {
		names[i] = bucket.name
	}
	return names
}

func (b *Buckets) Get(name string) (OutputBucket, bool) {
	bucket, ok := b.index[name]
	if !ok {
		return OutputBucket{}, false
	}
	return *bucket, true
}

func (b *Buckets) All() []OutputBucket {
	out := make([]OutputBucket, len(b.order))
	for i, bucket := range b.order {
		out[i] = *bucket
	}
	return out
}

func (b *Buckets) Len() int {
	return len(b.order)
}

func (b *Buckets) TotalRows() int {
	total := 0
	for _, bucket := range b.order {
		total += len(bucket.rows)
	}
	return total
}
