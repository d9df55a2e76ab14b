package module

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDKMSStatus(t *testing.T) {
	testCases := []struct {
		name       string
		output     string
		registered bool
	}{
		{
			name:       "current format",
			output:     "rcraid/9.3.0.00077, 5.14.0-570.12.1.el9_6.x86_64, x86_64: installed\n",
			registered: true,
		},
		{
			name:       "old format",
			output:     "rcraid, 9.3.0, 5.14.0-503.el9.x86_64, x86_64: installed\n",
			registered: true,
		},
		{
			name:       "added only",
			output:     "rcraid/9.3.0.00077: added\n",
			registered: true,
		},
		{
			name:       "other module",
			output:     "nvidia/550.54, 6.12.0-55.el10.x86_64, x86_64: installed\n",
			registered: false,
		},
		{
			name:       "empty",
			output:     "",
			registered: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			state := parseDKMSStatus(tc.output, "rcraid")
			require.Equal(t, tc.registered, state.Registered)
			if tc.registered {
				require.NotEmpty(t, state.Entries)
			}
		})
	}
}
