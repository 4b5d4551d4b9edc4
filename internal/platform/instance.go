// Package platform holds host-level guards for the refwatch binaries.
package platform

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"sync"
)

// ErrAlreadyRunning indicates another process already holds the lock.
var ErrAlreadyRunning = errors.New("instance already running")

const (
	minLockPort = 20000
	maxLockPort = 39999
)

// InstanceLock keeps one process per role on a device. The lock is a
// localhost listener on a port derived from the role name, so the kernel
// releases it when the process dies.
type InstanceLock struct {
	mu       sync.Mutex
	listener net.Listener
	name     string
}

// AcquireInstance takes the lock for app and role, for example
// ("refwatch", "referee"). A second referee on the same device gets
// ErrAlreadyRunning; a referee and a companion do not collide.
func AcquireInstance(app, role string) (*InstanceLock, error) {
	name := app + "/" + role
	listener, err := net.Listen("tcp", lockAddress(name))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrAlreadyRunning)
	}
	return &InstanceLock{listener: listener, name: name}, nil
}

// Name returns the app/role pair the lock was taken for.
func (lock *InstanceLock) Name() string {
	if lock == nil {
		return ""
	}
	return lock.name
}

// Release frees the lock. It is safe to call more than once.
func (lock *InstanceLock) Release() error {
	if lock == nil {
		return nil
	}
	lock.mu.Lock()
	defer lock.mu.Unlock()
	if lock.listener == nil {
		return nil
	}
	err := lock.listener.Close()
	lock.listener = nil
	return err
}

func lockAddress(name string) string {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(name))
	span := uint32(maxLockPort - minLockPort + 1)
	return fmt.Sprintf("127.0.0.1:%d", minLockPort+int(hash.Sum32()%span))
}
