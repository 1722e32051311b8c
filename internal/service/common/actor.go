//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"google.golang.org/grpc/metadata"
)

// Metadata keys carrying the requesting actor.
const (
	ActorHostnameKey = "x-actor-hostname"
	ActorUsernameKey = "x-actor-username"
)

// Actor identifies who issued a control request.
type Actor struct {
	Hostname string
	Username string
}

// String renders the actor as user@host.
func (a Actor) String() string {
	if a.Hostname == "" && a.Username == "" {
		return "unknown"
	}

	return a.Username + "@" + a.Hostname
}

// DetectActor gathers host and user information for the audit trail.
func DetectActor() (Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Actor{}, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return Actor{}, fmt.Errorf("current user: %w", err)
	}

	return Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

// ActorToContext attaches the actor to outgoing gRPC metadata.
func ActorToContext(ctx context.Context, actor Actor) context.Context {
	return metadata.AppendToOutgoingContext(ctx,
		ActorHostnameKey, actor.Hostname,
		ActorUsernameKey, actor.Username)
}

// ActorFromContext reads the actor from incoming gRPC metadata.
func ActorFromContext(ctx context.Context) Actor {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return Actor{}
	}

	return Actor{
		Hostname: first(md.Get(ActorHostnameKey)),
		Username: first(md.Get(ActorUsernameKey)),
	}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}

	return values[0]
}
