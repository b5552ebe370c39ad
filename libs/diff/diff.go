// Package diff wraps r3labs/diff with a comparer that treats uuid.UUID as a
// scalar, so changelogs report "ID changed" instead of sixteen byte-level
// entries. The expense service uses it to list the fields an update touched.
package diff

import (
	"reflect"
	"strings"

	"github.com/google/uuid"
	odiff "github.com/r3labs/diff/v3"
)

func GetCustomDiffer() *odiff.Differ {
	ret, err := odiff.NewDiffer(odiff.CustomValueDiffers(&UUIDComparer{}))
	if err != nil {
		panic(err)
	}
	return ret
}

// ChangedFields returns the dotted paths of every field that differs between
// old and new, in changelog order.
func ChangedFields(old, new interface{}) ([]string, error) {
	changelog, err := GetCustomDiffer().Diff(old, new)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(changelog))
	fields := make([]string, 0, len(changelog))
	for _, change := range changelog {
		path := strings.Join(change.Path, ".")
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		fields = append(fields, path)
	}
	return fields, nil
}

type UUIDComparer struct{}

var uuidType = reflect.TypeOf(uuid.UUID{})

// Match checks whether both values are uuid.UUID fields.
func (c UUIDComparer) Match(a, b reflect.Value) bool {
	aok := a.Kind() == uuidType.Kind() && a.Type() == uuidType
	bok := b.Kind() == uuidType.Kind() && b.Type() == uuidType
	return (aok && bok) || (a.Kind() == reflect.Invalid && bok) || (b.Kind() == reflect.Invalid && aok)
}

// Diff compares two uuid values as opaque scalars.
func (c UUIDComparer) Diff(_ odiff.DiffType, _ odiff.DiffFunc, cl *odiff.Changelog, path []string, a reflect.Value, b reflect.Value, _ interface{}) error {
	valA := reflect.Indirect(a)
	valB := reflect.Indirect(b)

	// One side nil counts as an update, not a deep byte comparison.
	if !valA.IsValid() || !valB.IsValid() {
		if valA.IsValid() != valB.IsValid() {
			cl.Add(odiff.UPDATE, path, a.Interface(), b.Interface())
		}
		return nil
	}

	u1 := valA.Interface().(uuid.UUID)
	u2 := valB.Interface().(uuid.UUID)
	if u1 != u2 {
		cl.Add(odiff.UPDATE, path, u1, u2)
	}
	return nil
}

// InsertParentDiffer is a no-op; uuid values are leaves.
func (c UUIDComparer) InsertParentDiffer(_ func(path []string, a reflect.Value, b reflect.Value, p interface{}) error) {
}
