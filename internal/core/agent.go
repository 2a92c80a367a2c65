package core

import "context"

// Participant is a protocol process: seeder, moderator, agent or listener.
type Participant interface {
	Name() string
	Run(ctx context.Context) error
}
