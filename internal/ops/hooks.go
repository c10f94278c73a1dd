package ops

import (
	"crypto/rand"
	"encoding/hex"
	"io/fs"
	"os"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

// Hooks holds the real-world touchpoints behind the operation handlers.
// Tests replace individual hooks to observe or suppress side effects; the
// mock-precedence guarantee is verified this way.
type Hooks struct {
	Stat      func(name string) (fs.FileInfo, error)
	ReadFile  func(name string) ([]byte, error)
	LookupEnv func(key string) (string, bool)
	Now       func() time.Time
	RandomHex func(bytes int) (string, error)
	CPUCounts func() (int, error)
	MemoryGB  func() (float64, error)
}

// DefaultHooks returns hooks backed by the host.
func DefaultHooks() *Hooks {
	return &Hooks{
		Stat:      os.Stat,
		ReadFile:  os.ReadFile,
		LookupEnv: os.LookupEnv,
		Now:       time.Now,
		RandomHex: func(bytes int) (string, error) {
			buffer := make([]byte, bytes)
			if _, err := rand.Read(buffer); err != nil {
				return "", err
			}
			return hex.EncodeToString(buffer), nil
		},
		CPUCounts: func() (int, error) {
			return cpu.Counts(true)
		},
		MemoryGB: func() (float64, error) {
			stat, err := mem.VirtualMemory()
			if err != nil {
				return 0, err
			}
			return float64(stat.Total) / (1024 * 1024 * 1024), nil
		},
	}
}
