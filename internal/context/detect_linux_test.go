//go:build linux

package context

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ancients-collective/sshcheck/internal/types"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOSRelease(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "os-release")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDetectDistroWith(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    types.DistroInfo
	}{
		{
			"ubuntu",
			"NAME=\"Ubuntu\"\nID=ubuntu\nID_LIKE=debian\nVERSION_ID=\"24.04\"\n",
			types.DistroInfo{ID: "ubuntu", Version: "24.04", Family: "debian"},
		},
		{
			"rocky with multiple ID_LIKE",
			"ID=\"rocky\"\nID_LIKE=\"rhel centos fedora\"\nVERSION_ID=\"9.4\"\n",
			types.DistroInfo{ID: "rocky", Version: "9.4", Family: "rhel"},
		},
		{
			"alpine without ID_LIKE",
			"# comment\n\nID=alpine\nVERSION_ID=3.20.1\n",
			types.DistroInfo{ID: "alpine", Version: "3.20.1", Family: "alpine"},
		},
		{
			"single quotes",
			"ID='debian'\nVERSION_ID='12'\n",
			types.DistroInfo{ID: "debian", Version: "12", Family: "debian"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := detectDistroWith(writeOSRelease(t, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectDistroWith_MissingID(t *testing.T) {
	_, err := detectDistroWith(writeOSRelease(t, "NAME=Mystery\nVERSION_ID=1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ID field")
}

func TestDetectDistroWith_MissingFile(t *testing.T) {
	_, err := detectDistroWith(filepath.Join(t.TempDir(), "absent"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLinuxDetector_DetectDistro_Gopsutil(t *testing.T) {
	withHostInfo(t, func() (*host.InfoStat, error) {
		return &host.InfoStat{Platform: "debian", PlatformVersion: "12.7", PlatformFamily: "debian"}, nil
	})

	got, err := (&LinuxDetector{}).DetectDistro()
	require.NoError(t, err)
	assert.Equal(t, types.DistroInfo{ID: "debian", Version: "12.7", Family: "debian"}, got)
}
