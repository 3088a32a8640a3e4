package process

import (
	"context"
	"os"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/release-keeper/internal/logger"
)

// Terminate kills every running process whose executable name is in names,
// except the current process. It returns how many processes were killed.
func Terminate(ctx context.Context, names []string) (int, error) {
	wanted := sliceToSet(names)

	processList, err := ps.Processes()
	if err != nil {
		return 0, err
	}

	thisProcessID := os.Getpid()
	killed := 0

	for _, process := range processList {
		processID := process.Pid()
		if processID == thisProcessID {
			continue
		}

		processName := process.Executable()
		if _, found := wanted[processName]; !found {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(processID)
		if err != nil {
			return killed, err
		}

		if err = runningProcess.Kill(); err != nil {
			return killed, err
		}

		logger.InfoKV(ctx, "Terminated running process", "pid", processID, "executable", processName)

		killed++
	}

	return killed, nil
}

// sliceToSet converts a slice to a set for quick lookups.
func sliceToSet[T comparable](elements []T) map[T]struct{} {
	result := make(map[T]struct{}, len(elements))
	for _, value := range elements {
		result[value] = struct{}{}
	}

	return result
}
