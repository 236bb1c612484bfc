package db

import (
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/socshift-backend/pkg/validation"
)

// Document is implemented by every model stored in Firestore.
type Document interface {
	SetID(id string)
}

var (
	schemaOnce     sync.Once
	schemaValidate *validator.Validate
)

func schema() *validator.Validate {
	schemaOnce.Do(func() {
		schemaValidate = validation.MustRegister(validator.New(validator.WithRequiredStructEnabled()))
	})
	return schemaValidate
}

// SchemaError describes a document that does not match its model.
type SchemaError struct {
	Path string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrSchemaMismatch, e.Path, e.Err)
}

func (e *SchemaError) Unwrap() []error {
	return []error{ErrSchemaMismatch, e.Err}
}

// Decode copies snap into dst, assigns the document id and validates the
// result. Missing documents return ErrNotFound; anything that fails to decode
// or validate returns a *SchemaError.
func Decode(snap *firestore.DocumentSnapshot, dst Document) error {
	if snap == nil || !snap.Exists() {
		return ErrNotFound
	}
	path := ""
	if snap.Ref != nil {
		path = snap.Ref.Path
	}
	if err := snap.DataTo(dst); err != nil {
		return &SchemaError{Path: path, Err: err}
	}
	if snap.Ref != nil {
		dst.SetID(snap.Ref.ID)
	}
	if err := Validate(dst); err != nil {
		return &SchemaError{Path: path, Err: err}
	}
	return nil
}

// DecodeAll decodes every snapshot into a slice of T, failing on the first
// document that does not match the schema.
func DecodeAll[T any, P interface {
	*T
	Document
}](snaps []*firestore.DocumentSnapshot) ([]T, error) {
	out := make([]T, 0, len(snaps))
	for _, snap := range snaps {
		var item T
		if err := Decode(snap, P(&item)); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Validate runs the model's validate tags. Writers call it before persisting
// so that nothing reaches Firestore that Decode would later reject.
func Validate(doc any) error {
	return schema().Struct(doc)
}
