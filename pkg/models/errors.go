package models

import "errors"

var (
	// ErrMissingKey marks a record without the registry number (or name)
	// needed to key it.
	ErrMissingKey = errors.New("record is missing a required key")

	// ErrAmbiguousParty marks a director or shareholder entry that carries
	// neither an individual name nor an entity name.
	ErrAmbiguousParty = errors.New("party has neither a name nor an entity name")
)
