//go:build !tinygo

package button

import "runtime"

// defaultYield hands the processor to the woken toggle task.
func defaultYield() {
	runtime.Gosched()
}
