//go:build linux

package guard

import (
	"bufio"
	"fmt"
	"os"
)

// ProcessRSSBytes reads resident set size from /proc/self/statm, the
// same source the original implementation used on non-Windows hosts.
// Returns 0 if the file cannot be read or parsed.
func ProcessRSSBytes() uint64 {
	f, err := os.Open("/proc/self/statm")
	if err != nil {
		return 0
	}
	defer f.Close()

	var pages, resident uint64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 256), 256)
	if !sc.Scan() {
		return 0
	}
	n, err := fmt.Sscan(sc.Text(), &pages, &resident)
	if err != nil || n != 2 {
		return 0
	}

	return resident * uint64(os.Getpagesize())
}
