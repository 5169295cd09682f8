package epubtranslate

import (
	"errors"
	"fmt"
)

var (
	// ErrInputNotFound is returned when the source book does not exist.
	ErrInputNotFound = errors.New("epubtranslate: input not found")

	// ErrContainerParse is returned when the source book cannot be read.
	ErrContainerParse = errors.New("epubtranslate: cannot read book")

	// ErrContainerWrite is returned when the translated book cannot be
	// written. No file is left at the output path.
	ErrContainerWrite = errors.New("epubtranslate: cannot write book")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("epubtranslate: invalid config")

	// ErrStructureMismatch is returned by VerifyStructure.
	ErrStructureMismatch = errors.New("epubtranslate: structure mismatch")
)

// FragmentError records a fragment whose translation failed. The fragment
// keeps its original text.
type FragmentError struct {
	// Chapter is the href of the chapter holding the fragment.
	Chapter string

	// Text is the untranslated fragment text.
	Text string

	Err error
}

func (e FragmentError) Error() string {
	return fmt.Sprintf("epubtranslate: %s: translate %q: %v", e.Chapter, e.Text, e.Err)
}

func (e FragmentError) Unwrap() error {
	return e.Err
}
