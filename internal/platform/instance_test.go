package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireInstanceIsExclusivePerRole(t *testing.T) {
	app := "refwatch-test-" + t.Name()

	referee, err := AcquireInstance(app, "referee")
	require.NoError(t, err)
	defer referee.Release()
	require.Equal(t, app+"/referee", referee.Name())

	_, err = AcquireInstance(app, "referee")
	require.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, referee.Release())
	require.NoError(t, referee.Release())

	again, err := AcquireInstance(app, "referee")
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestLockAddressIsStable(t *testing.T) {
	require.Equal(t, lockAddress("refwatch/referee"), lockAddress("refwatch/referee"))
	require.NotEqual(t, lockAddress("refwatch/referee"), lockAddress("refwatch/companion"))
}

func TestNilLock(t *testing.T) {
	var lock *InstanceLock
	require.NoError(t, lock.Release())
	require.Empty(t, lock.Name())
}
