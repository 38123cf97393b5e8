package exec

import (
	"fmt"
	"os"
)

// S6Notify writes a single byte to fd then closes it, the readiness signal
// a process supervisor such as s6 waits on before considering the daemon up.
func S6Notify(fd int) error {
	f := os.NewFile(uintptr(fd), "s6-notify")
	if f == nil {
		return fmt.Errorf("s6-notify: invalid file descriptor %d", fd)
	}
	defer f.Close()
	if _, err := f.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("s6-notify: write fd %d: %w", fd, err)
	}
	return nil
}
