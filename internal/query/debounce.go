// debounce.go — отложенный пересчёт выборки при частых изменениях ввода.
package query

import (
	"sync"
	"time"
)

// DefaultDebounce — окно тишины перед пересчётом.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer выполняет последнюю переданную функцию после окна тишины.
// Каждый Trigger перезапускает окно.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	gen     uint64
	stopped bool
}

// NewDebouncer создаёт Debouncer с окном window (0 — DefaultDebounce).
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Debouncer{window: window}
}

// Window возвращает длительность окна.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Trigger откладывает fn до окончания окна. Предыдущая отложенная функция отменяется.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending = fn
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
}

// Flush немедленно выполняет отложенную функцию, если она есть.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	fn := d.pending
	d.pending = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Stop отменяет отложенную функцию. Последующие Trigger игнорируются.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
	}
}

// fire выполняет отложенную функцию, если после запуска таймера не было нового Trigger.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}
