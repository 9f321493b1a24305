package store

import (
	"fmt"
	"maps"
	"slices"
)

// OpKind is the kind of a batch operation.
type OpKind int

const (
	OpCreate OpKind = iota + 1
	OpUpdate
	OpDelete
	OpIncrement
	OpDecrement
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpIncrement:
		return "increment"
	case OpDecrement:
		return "decrement"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// Op is one write inside a batch.
type Op struct {
	Kind       OpKind
	Collection Collection
	ID         string

	// Fields holds column values for create and update.
	Fields map[string]any

	// Field and Amount describe an increment or decrement.
	Field  string
	Amount int

	// Permissions are stored verbatim on create; the engine does not read them.
	Permissions []string
}

// Create inserts a record with the given id.
func Create(coll Collection, id string, fields map[string]any, permissions ...string) Op {
	return Op{Kind: OpCreate, Collection: coll, ID: id, Fields: maps.Clone(fields), Permissions: permissions}
}

// Update sets fields on an existing record.
func Update(coll Collection, id string, fields map[string]any) Op {
	return Op{Kind: OpUpdate, Collection: coll, ID: id, Fields: maps.Clone(fields)}
}

// Delete removes an existing record.
func Delete(coll Collection, id string) Op {
	return Op{Kind: OpDelete, Collection: coll, ID: id}
}

// Increment adds amount to a counter field of an existing record.
func Increment(coll Collection, id, field string, amount int) Op {
	return Op{Kind: OpIncrement, Collection: coll, ID: id, Field: field, Amount: amount}
}

// Decrement subtracts amount from a counter field of an existing record.
func Decrement(coll Collection, id, field string, amount int) Op {
	return Op{Kind: OpDecrement, Collection: coll, ID: id, Field: field, Amount: amount}
}

// Validate checks the op against the collection schema.
func (o Op) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("%s %s: empty id", o.Kind, o.Collection)
	}
	if err := o.Collection.CheckFields(); err != nil {
		return err
	}

	switch o.Kind {
	case OpCreate, OpUpdate:
		if o.Kind == OpUpdate && len(o.Fields) == 0 {
			return fmt.Errorf("update %s/%s: no fields", o.Collection, o.ID)
		}
		if o.Kind == OpUpdate && o.Fields[FieldID] != nil {
			return fmt.Errorf("update %s/%s: id is immutable", o.Collection, o.ID)
		}
		return o.Collection.CheckFields(slices.Collect(maps.Keys(o.Fields))...)
	case OpDelete:
		return nil
	case OpIncrement, OpDecrement:
		if !o.Collection.IsCounter(o.Field) {
			return fmt.Errorf("%w: %s.%s is not a counter", ErrUnknownField, o.Collection, o.Field)
		}
		if o.Amount < 0 {
			return fmt.Errorf("%s %s.%s: negative amount %d", o.Kind, o.Collection, o.Field, o.Amount)
		}
		return nil
	default:
		return fmt.Errorf("unknown op kind %d", int(o.Kind))
	}
}

func (o Op) String() string {
	switch o.Kind {
	case OpIncrement, OpDecrement:
		return fmt.Sprintf("%s %s/%s.%s by %d", o.Kind, o.Collection, o.ID, o.Field, o.Amount)
	default:
		return fmt.Sprintf("%s %s/%s", o.Kind, o.Collection, o.ID)
	}
}
