package memprobe

import (
	"github.com/shirou/gopsutil/v3/mem"
)

// AvailableMB reports the system memory currently available for new
// processes, in megabytes.
func AvailableMB() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available / (1 << 20), nil
}
