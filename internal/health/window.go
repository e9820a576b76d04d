package health

// lossWindow is a fixed-size ring over the most recent probe outcomes.
// Loss percentage is computed over the slots actually filled, so a
// target observed three times with one miss reads 33%, not 10%.
type lossWindow struct {
	slots  []bool // true = reachable
	next   int
	filled int
}

func newLossWindow(size int) *lossWindow {
	return &lossWindow{slots: make([]bool, size)}
}

func (w *lossWindow) push(reachable bool) {
	w.slots[w.next] = reachable
	w.next = (w.next + 1) % len(w.slots)
	if w.filled < len(w.slots) {
		w.filled++
	}
}

func (w *lossWindow) lossPct() float64 {
	if w.filled == 0 {
		return 0
	}
	lost := 0
	for i := 0; i < w.filled; i++ {
		if !w.slots[i] {
			lost++
		}
	}
	return float64(lost) / float64(w.filled) * 100
}

func (w *lossWindow) size() int {
	return w.filled
}
