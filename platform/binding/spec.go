package binding

import (
	"fmt"

	"github.com/robbyt/go-evmod/execution/descriptor"
)

// Spec names the event to bind: either Modifier source text or a
// Precompiled descriptor.
type Spec interface {
	descriptor(b *Binder) (*descriptor.Descriptor, error)
}

// Modifier is modifier source text such as "keydown[altKey].prevent".
type Modifier string

// Precompiled is a descriptor built by the caller or compiled earlier.
type Precompiled struct {
	Descriptor *descriptor.Descriptor
}

func (m Modifier) descriptor(b *Binder) (*descriptor.Descriptor, error) {
	return b.Descriptor(string(m))
}

func (p Precompiled) descriptor(*Binder) (*descriptor.Descriptor, error) {
	if p.Descriptor == nil {
		return nil, fmt.Errorf("%w: nil descriptor", ErrInvalidSpec)
	}
	if p.Descriptor.EventName == "" {
		return nil, fmt.Errorf("%w: empty event name", ErrInvalidSpec)
	}
	return p.Descriptor, nil
}
