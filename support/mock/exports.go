package mock

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/ipfs/go-cid"

	"github.com/worlddbs/power-actor/actors/runtime"
)

var (
	runtimeType     = reflect.TypeOf((*runtime.Runtime)(nil)).Elem()
	unmarshalerType = reflect.TypeOf((*cbor.Unmarshaler)(nil)).Elem()
	marshalerType   = reflect.TypeOf((*cbor.Marshaler)(nil)).Elem()
	cidType         = reflect.TypeOf(cid.Undef)
)

// CheckActorExports checks that every exported method has a shape the runtime can invoke, and that
// no parameter carries a CID the actor has not marked as validated.
func CheckActorExports(t *testing.T, act interface{ Exports() []interface{} }) {
	for num, m := range act.Exports() {
		// Method 0 is the implicit send.
		if num == 0 || m == nil {
			continue
		}
		typ := reflect.TypeOf(m)
		t.Run(fmt.Sprintf("method%d", num), func(t *testing.T) {
			if problem := methodTypeProblem(typ); problem != "" {
				t.Fatalf("method %d: %s", num, problem)
			}
			if path, ok := uncheckedInput(typ.In(1), typ.In(1).String()); !ok {
				t.Fatalf("method %d takes an unchecked input at %s", num, path)
			}
		})
	}
}

// methodTypeProblem describes why typ cannot be an exported actor method, or returns "".
func methodTypeProblem(typ reflect.Type) string {
	switch {
	case typ.Kind() != reflect.Func:
		return fmt.Sprintf("%v is not a function", typ)
	case typ.NumIn() != 2:
		return fmt.Sprintf("takes %d parameters, want runtime and params", typ.NumIn())
	case typ.In(0) != runtimeType:
		return fmt.Sprintf("first parameter is %v, want runtime.Runtime", typ.In(0))
	case typ.In(1).Kind() != reflect.Ptr || !typ.In(1).Implements(unmarshalerType):
		return fmt.Sprintf("params type %v is not a pointer to a CBOR unmarshaler", typ.In(1))
	case typ.NumOut() != 1 || !typ.Out(0).Implements(marshalerType):
		return "must return exactly one CBOR-marshalable value"
	}
	return ""
}

// uncheckedInput walks a params type looking for interfaces or CIDs not tagged `checked:"true"`.
// It returns the path to the first one found and false.
func uncheckedInput(typ reflect.Type, path string) (string, bool) {
	switch typ.Kind() {
	case reflect.Array, reflect.Slice, reflect.Map, reflect.Ptr:
		return uncheckedInput(typ.Elem(), path+"[]")
	case reflect.Interface:
		return path, false
	case reflect.Struct:
		if typ == cidType {
			return path, false
		}
		for i := 0; i < typ.NumField(); i++ {
			f := typ.Field(i)
			if f.Tag.Get("checked") == "true" && f.Type == cidType {
				continue
			}
			if p, ok := uncheckedInput(f.Type, path+"."+f.Name); !ok {
				return p, false
			}
		}
	}
	return "", true
}
