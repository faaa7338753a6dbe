// ABOUTME: Canonical conversation identifiers ("inboxes") built from participant ids
// ABOUTME: Provides New/Participants/Parse; pure functions with no I/O

package inbox

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidArgument is returned when an identifier cannot be built or parsed.
var ErrInvalidArgument = errors.New("invalid argument")

// separator joins the kind tag and the participant ids.
const separator = "_"

// Kind tags the shape of a conversation.
type Kind string

const (
	// KindDirect is a conversation between exactly two participants.
	KindDirect Kind = "d"
	// KindGroup is a conversation between three or more participants.
	KindGroup Kind = "g"
)

// ID is a canonical conversation identifier, e.g. "d_alice_bob".
type ID string

// String returns the identifier as a plain string.
func (id ID) String() string {
	return string(id)
}

// New builds the identifier for a set of participants. Ids are sorted so the
// same set always yields the same identifier regardless of argument order.
func New(participantIDs ...string) (ID, error) {
	if len(participantIDs) < 2 {
		return "", fmt.Errorf("%w: need at least 2 participants, got %d", ErrInvalidArgument, len(participantIDs))
	}

	ids := slices.Clone(participantIDs)
	for _, p := range ids {
		if p == "" || strings.Contains(p, separator) {
			return "", fmt.Errorf("%w: participant id %q", ErrInvalidArgument, p)
		}
	}
	slices.Sort(ids)

	kind := KindDirect
	if len(ids) > 2 {
		kind = KindGroup
	}

	return ID(string(kind) + separator + strings.Join(ids, separator)), nil
}

// Participants returns the two participants of a direct conversation.
// Group identifiers are rejected: unread routing only resolves two-party
// conversations.
func Participants(id ID) ([]string, error) {
	kind, ids, err := Parse(id)
	if err != nil {
		return nil, err
	}
	if kind != KindDirect {
		return nil, fmt.Errorf("%w: %q is not a direct conversation", ErrInvalidArgument, id)
	}
	return ids, nil
}

// Parse splits any canonical identifier into its kind and sorted participants.
func Parse(id ID) (Kind, []string, error) {
	parts := strings.Split(string(id), separator)
	if len(parts) < 3 {
		return "", nil, fmt.Errorf("%w: malformed conversation id %q", ErrInvalidArgument, id)
	}

	kind, ids := Kind(parts[0]), parts[1:]
	switch {
	case kind == KindDirect && len(ids) == 2:
	case kind == KindGroup && len(ids) > 2:
	default:
		return "", nil, fmt.Errorf("%w: malformed conversation id %q", ErrInvalidArgument, id)
	}

	for _, p := range ids {
		if p == "" {
			return "", nil, fmt.Errorf("%w: empty participant in %q", ErrInvalidArgument, id)
		}
	}
	if !slices.IsSorted(ids) {
		return "", nil, fmt.Errorf("%w: participants of %q are not in canonical order", ErrInvalidArgument, id)
	}

	return kind, ids, nil
}

// Other returns the participant of a direct conversation that is not self.
// It fails when self is not one of the two participants.
func Other(id ID, self string) (string, error) {
	ids, err := Participants(id)
	if err != nil {
		return "", err
	}
	switch self {
	case ids[0]:
		return ids[1], nil
	case ids[1]:
		return ids[0], nil
	}
	return "", fmt.Errorf("%w: %q is not a participant of %q", ErrInvalidArgument, self, id)
}
