//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
)

// TestDetectActor ensures hostname and username are detected and non-empty.
func TestDetectActor(t *testing.T) {
	t.Parallel()

	a, err := DetectActor()
	require.NoError(t, err)
	require.NotEmpty(t, a.Hostname)
	require.NotEmpty(t, a.Username)
}

// TestActor_Metadata moves an actor from outgoing to incoming metadata.
func TestActor_Metadata(t *testing.T) {
	t.Parallel()

	actor := Actor{Hostname: "desk-7", Username: "ops"}

	outgoing := ActorToContext(t.Context(), actor)
	md, ok := metadata.FromOutgoingContext(outgoing)
	require.True(t, ok)

	incoming := metadata.NewIncomingContext(t.Context(), md)
	require.Equal(t, actor, ActorFromContext(incoming))
	require.Equal(t, "ops@desk-7", actor.String())

	require.Equal(t, Actor{}, ActorFromContext(t.Context()))
	require.Equal(t, "unknown", Actor{}.String())
}
