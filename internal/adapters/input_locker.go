package adapters

import (
	"context"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"envlock/internal/ports"
	"envlock/internal/shared"
	"envlock/internal/types"
)

// PinFileLocker pins registry inputs deterministically. An input that
// already carries a pin is returned unchanged; a pins file entry (by
// input name) wins next; otherwise the input's source file is hashed
// and the revision derived from the digest. Same bytes, same pin.
type PinFileLocker struct {
	PinsPath string
	pins     map[string]pinEntry
	loaded   bool
}

type pinEntry struct {
	Rev     string `yaml:"rev"`
	NarHash string `yaml:"nar-hash"`
}

func NewPinFileLocker(pinsPath string) *PinFileLocker {
	return &PinFileLocker{PinsPath: pinsPath}
}

func (l *PinFileLocker) LockInput(ctx context.Context, name string, input types.RegistryInput) (types.LockedInput, error) {
	if input.Locked != nil {
		return *input.Locked, nil
	}

	pins, err := l.load()
	if err != nil {
		return types.LockedInput{}, err
	}
	if pin, ok := pins[name]; ok {
		return types.LockedInput{URL: input.URL, Rev: pin.Rev, NarHash: pin.NarHash}, nil
	}

	path := shared.PathFromURL(input.URL)
	data, err := os.ReadFile(path)
	if err != nil {
		return types.LockedInput{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("input source not found").
			WithCause(err)
	}
	digest := shared.HashBytes(data)
	locked := types.LockedInput{URL: input.URL, Rev: digest[:12], NarHash: digest}
	log.Ctx(ctx).Debug().Str("input", name).Str("rev", locked.Rev).Msg("derived input pin from content")
	return locked, nil
}

func (l *PinFileLocker) load() (map[string]pinEntry, error) {
	if l.loaded {
		return l.pins, nil
	}
	l.pins = map[string]pinEntry{}
	if l.PinsPath != "" {
		data, err := os.ReadFile(l.PinsPath)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("pins file not found").
				WithCause(err)
		}
		if err := yaml.Unmarshal(data, &l.pins); err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid pins file format").
				WithCause(err)
		}
	}
	l.loaded = true
	return l.pins, nil
}

var _ ports.InputLockerPort = (*PinFileLocker)(nil)
