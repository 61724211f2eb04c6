//go:build !linux

package guard

// ProcessRSSBytes returns 0: Go has no portable RSS syscall in the
// standard library, and the original only samples /proc/self/statm on
// non-Windows hosts. Memory-growth snapshots are zero-valued here.
func ProcessRSSBytes() uint64 {
	return 0
}
