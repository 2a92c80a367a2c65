// Package protocol holds everything the moderator, agents and listener must
// agree on bit for bit: channel names, message formats, reference-entry keys
// and the round layout.
package protocol
