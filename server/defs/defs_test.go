package defs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	require.Equal(t, RoleAdmin, ParseRole("admin"))
	require.Equal(t, RoleEditor, ParseRole(" Editor "))
	require.Equal(t, RoleAuthor, ParseRole("AUTHOR"))
	require.Equal(t, RoleViewer, ParseRole("viewer"))
	// Unrecognized values collapse to viewer
	require.Equal(t, RoleViewer, ParseRole("superuser"))
	require.Equal(t, RoleViewer, ParseRole(""))
}

func TestRoleFromExternalClaim(t *testing.T) {
	require.Equal(t, RoleAdmin, RoleFromExternalClaim("Admin"))
	require.Equal(t, RoleAdmin, RoleFromExternalClaim("Global-Administrator"))
	// Documented bluntness of the substring rules
	require.Equal(t, RoleAdmin, RoleFromExternalClaim("administrative-assistant"))
	require.Equal(t, RoleEditor, RoleFromExternalClaim("Content.Editor"))
	require.Equal(t, RoleAuthor, RoleFromExternalClaim("blog-author"))
	require.Equal(t, RoleViewer, RoleFromExternalClaim("reader"))
	require.Equal(t, RoleViewer, RoleFromExternalClaim(""))
}

func TestCanWrite(t *testing.T) {
	require.True(t, RoleAdmin.CanWrite())
	require.True(t, RoleEditor.CanWrite())
	require.True(t, RoleAuthor.CanWrite())
	require.False(t, RoleViewer.CanWrite())
}
