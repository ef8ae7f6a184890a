package collections

// VoteTally accumulates weighted votes per label. Labels are kept in
// insertion order, and Best breaks ties by the smallest label, so the winner
// does not depend on map iteration order.
type VoteTally struct {
	labels  []int64
	weights []float64
	index   map[int64]int
}

// NewVoteTally creates a tally sized for about capacity distinct labels.
func NewVoteTally(capacity int) *VoteTally {
	if capacity < 0 {
		capacity = 0
	}
	return &VoteTally{
		labels:  make([]int64, 0, capacity),
		weights: make([]float64, 0, capacity),
		index:   make(map[int64]int, capacity),
	}
}

// Add adds weight to label's total.
func (t *VoteTally) Add(label int64, weight float64) {
	if i, ok := t.index[label]; ok {
		t.weights[i] += weight
		return
	}
	t.index[label] = len(t.labels)
	t.labels = append(t.labels, label)
	t.weights = append(t.weights, weight)
}

// Weight returns label's accumulated weight.
func (t *VoteTally) Weight(label int64) float64 {
	if i, ok := t.index[label]; ok {
		return t.weights[i]
	}
	return 0
}

// Len returns the number of distinct labels.
func (t *VoteTally) Len() int {
	return len(t.labels)
}

// Best returns the label with the highest weight. ok is false when the
// tally is empty.
func (t *VoteTally) Best() (label int64, weight float64, ok bool) {
	if len(t.labels) == 0 {
		return -1, 0, false
	}
	label, weight = t.labels[0], t.weights[0]
	for i := 1; i < len(t.labels); i++ {
		l, w := t.labels[i], t.weights[i]
		if w > weight || (w == weight && l < label) {
			label, weight = l, w
		}
	}
	return label, weight, true
}

// Reset empties the tally, keeping its allocations.
func (t *VoteTally) Reset() {
	t.labels = t.labels[:0]
	t.weights = t.weights[:0]
	clear(t.index)
}
