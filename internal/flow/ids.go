package flow

import (
	"fmt"
	"strconv"
	"strings"
)

// Id prefixes used for generated node ids.
const (
	CasePrefix   = "case"
	AnswerPrefix = "ans"
)

// IDAllocator hands out "<prefix>_<n>" ids from a single counter shared by
// every prefix, so ids never repeat within one graph.
type IDAllocator struct {
	next int
}

func NewIDAllocator() *IDAllocator {
	return &IDAllocator{next: 1}
}

// Next returns a fresh id and advances the counter.
func (a *IDAllocator) Next(prefix string) string {
	id := fmt.Sprintf("%s_%d", prefix, a.next)
	a.next++
	return id
}

// Observe moves the counter past the numeric suffix of an id that entered
// the graph from elsewhere (an imported document).
func (a *IDAllocator) Observe(id string) {
	i := strings.LastIndexByte(id, '_')
	if i < 0 || i == len(id)-1 {
		return
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil || n < a.next {
		return
	}
	a.next = n + 1
}

// Reset starts the counter over.
func (a *IDAllocator) Reset() {
	a.next = 1
}
