package memprobe

import "testing"

func TestAvailableMB(t *testing.T) {
	available, err := AvailableMB()
	if err != nil {
		t.Fatal(err)
	}
	if available == 0 {
		t.Error("available memory should not be zero on a running system")
	}
}
