package groups

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		uuid    string
		want    ID
		wantErr bool
	}{
		{
			name: "project and file",
			uuid: "git:proj:file",
			want: ID{raw: "git:proj:file", Project: "proj", Branch: "HEAD", File: "file"},
		},
		{
			name: "project, branch and file",
			uuid: "git:proj:br:file",
			want: ID{raw: "git:proj:br:file", Project: "proj", Branch: "br", File: "file"},
		},
		{
			name: "nested file path",
			uuid: "git:proj:master:groups/devs",
			want: ID{raw: "git:proj:master:groups/devs", Project: "proj", Branch: "master", File: "groups/devs"},
		},
		{name: "too few fields", uuid: "git:proj", wantErr: true},
		{name: "too many fields", uuid: "git:proj:a:b:c", wantErr: true},
		{name: "empty remainder", uuid: "git:", wantErr: true},
		{name: "wrong prefix", uuid: "ldap:proj:file", wantErr: true},
		{name: "empty string", uuid: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseID(tt.uuid)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandles(t *testing.T) {
	assert.True(t, Handles("git:proj:file"))
	assert.True(t, Handles("git:"))
	assert.False(t, Handles("ldap:cn=admins"))
	assert.False(t, Handles(""))
}

func TestDisplayName(t *testing.T) {
	id, err := ParseID("git:proj:br:groups/devs")
	require.NoError(t, err)
	assert.Equal(t, "git/proj:br:groups/devs", id.DisplayName())
	assert.Equal(t, "git/proj:file", DisplayNameOf("git:proj:file"))
}
