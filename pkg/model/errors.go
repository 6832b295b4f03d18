package model

import "errors"

var (
	// ErrUnbound is returned when a model was not created or initialised by a Registry.
	ErrUnbound = errors.New("model is not bound to a registry")
	// ErrUnknownModel is returned for model or enum names missing from the Registry.
	ErrUnknownModel = errors.New("unknown model")
	// ErrInvalidModel is returned when registering something that is not a pointer to a struct.
	ErrInvalidModel = errors.New("invalid model")
	// ErrReferenceConstruction is returned when a reference is created from an
	// unsaved model or from a model without a collection.
	ErrReferenceConstruction = errors.New("cannot create reference")
	// ErrDetached is returned when resolving a reference that has no Loader.
	ErrDetached = errors.New("reference has no loader")
	// ErrImmutableReference is returned by every attempt to mutate a reference.
	ErrImmutableReference = errors.New("cannot set attributes on a reference")
	// ErrUnknownEnumMember is returned when an enum key or value is not a member.
	ErrUnknownEnumMember = errors.New("unknown enum member")
	// ErrDecode is returned when a raw document cannot be reconstructed.
	ErrDecode = errors.New("decode error")
)
